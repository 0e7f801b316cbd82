package runner

import (
	"time"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/types"
)

// TestRunResult is the outcome of one suite execution by a runner.
type TestRunResult struct {
	// Passed reports whether every test passed.
	Passed bool
	// Skipped is set when the runner's tool is unavailable or its target
	// path is missing. A skipped suite is not a failure.
	Skipped bool
	// Error holds the failure or skip reason.
	Error string
	// TotalTime is the wall-clock time of the whole run.
	TotalTime time.Duration
	// Tests holds per-test results when the runner provides them.
	Tests []types.TestResult
	// Coverage maps language to collected coverage, when requested.
	Coverage map[string]*coverage.Result
}

// Passed builds a successful result with no per-test detail.
func Passed(totalTime time.Duration) *TestRunResult {
	return &TestRunResult{Passed: true, TotalTime: totalTime}
}

// FailedRun builds a failed result with a reason.
func FailedRun(totalTime time.Duration, reason string) *TestRunResult {
	return &TestRunResult{Error: reason, TotalTime: totalTime}
}

// SkippedRun builds a skipped result, used when a runner cannot execute in
// the current environment.
func SkippedRun(reason string) *TestRunResult {
	return &TestRunResult{Skipped: true, Error: reason}
}

// WithTests attaches per-test results, recomputing overall pass state from
// them when present.
func (r *TestRunResult) WithTests(tests []types.TestResult) *TestRunResult {
	if len(tests) > 0 {
		passed := true
		for _, t := range tests {
			if !t.Passed && !t.Skipped {
				passed = false
				break
			}
		}
		r.Passed = passed
		if !passed && r.Error == "" {
			r.Error = "tests failed"
		}
	}
	r.Tests = tests
	return r
}

// AddCoverage records a language's coverage contribution.
func (r *TestRunResult) AddCoverage(language string, result *coverage.Result) {
	if result == nil {
		return
	}
	if r.Coverage == nil {
		r.Coverage = map[string]*coverage.Result{}
	}
	if existing, ok := r.Coverage[language]; ok {
		r.Coverage[language] = coverage.Merge(existing, result)
		return
	}
	r.Coverage[language] = result
}

// TestCount returns the number of individual test results.
func (r *TestRunResult) TestCount() int { return len(r.Tests) }

// SkippedCount returns the number of skipped tests.
func (r *TestRunResult) SkippedCount() int {
	n := 0
	for _, t := range r.Tests {
		if t.Skipped {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failed tests.
func (r *TestRunResult) FailedCount() int {
	n := 0
	for _, t := range r.Tests {
		if !t.Passed && !t.Skipped {
			n++
		}
	}
	return n
}

// AvgDuration averages only tests that reported a non-zero duration, so
// runners without per-test timing do not drag the mean to zero.
func (r *TestRunResult) AvgDuration() time.Duration {
	var sum time.Duration
	var n int
	for _, t := range r.Tests {
		if t.Duration > 0 {
			sum += t.Duration
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

// SlowestTest returns the slowest timed test, or nil when no test
// reported a duration.
func (r *TestRunResult) SlowestTest() *types.TestResult {
	var slowest *types.TestResult
	for i := range r.Tests {
		t := &r.Tests[i]
		if t.Duration > 0 && (slowest == nil || t.Duration > slowest.Duration) {
			slowest = t
		}
	}
	return slowest
}
