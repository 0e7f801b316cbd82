// Package suite orchestrates test suite execution: scheduling, the
// per-suite state machine, and rollup of timing and coverage metrics.
package suite

import (
	"time"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/types"
)

// Status is a suite's position in its lifecycle. Every suite moves
// Pending to Running to exactly one terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusTimedOut Status = "timed_out"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped, StatusTimedOut:
		return true
	}
	return false
}

// Result is one suite's rolled-up outcome.
type Result struct {
	Name    string `json:"name"`
	Runner  string `json:"runner"`
	Status  Status `json:"status"`
	Passed  bool   `json:"passed"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`

	TestCount    int `json:"test_count"`
	SkippedCount int `json:"skipped_count"`

	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	// MaxTest names the slowest test when per-test timing exists.
	MaxTest string `json:"max_test,omitempty"`

	Tests    []types.TestResult          `json:"-"`
	Coverage map[string]*coverage.Result `json:"-"`
}

// Results is the outcome of a whole run.
type Results struct {
	// Passed is false when any non-skipped suite failed.
	Passed bool
	// Stopped reports that sequential execution ended early at the
	// first failure.
	Stopped bool
	Suites  []Result
	// Coverage is the per-language aggregate across all suites.
	Coverage coverage.Aggregate
}

// Summary are the run-level metrics derived from all executed suites.
type Summary struct {
	TestCount    int
	SkippedCount int
	TotalMs      float64
	AvgMs        float64
	MaxMs        float64
	MaxTest      string
}

// Aggregated computes run-level metrics. The average covers only tests
// that reported a non-zero duration, so tool families without per-test
// timing do not skew it.
func (r *Results) Aggregated() Summary {
	var s Summary
	var timedSum float64
	var timedCount int
	for _, suite := range r.Suites {
		if suite.Skipped {
			continue
		}
		s.TestCount += suite.TestCount
		s.SkippedCount += suite.SkippedCount
		s.TotalMs += suite.TotalMs
		for _, t := range suite.Tests {
			if t.Duration > 0 {
				ms := float64(t.Duration) / float64(time.Millisecond)
				timedSum += ms
				timedCount++
				if ms > s.MaxMs {
					s.MaxMs = ms
					s.MaxTest = t.Name
				}
			}
		}
	}
	if timedCount > 0 {
		s.AvgMs = timedSum / float64(timedCount)
	}
	return s
}

// SuiteNames lists the suites in execution order.
func (r *Results) SuiteNames() []string {
	names := make([]string, len(r.Suites))
	for i, s := range r.Suites {
		names[i] = s.Name
	}
	return names
}
