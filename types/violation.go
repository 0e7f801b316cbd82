package types

import "fmt"

// ViolationKind identifies the category of a threshold or suite violation.
type ViolationKind string

const (
	ViolationSuiteFailed      ViolationKind = "test_suite_failed"
	ViolationCoverageBelowMin ViolationKind = "coverage_below_min"
	ViolationTimeTotal        ViolationKind = "time_total_exceeded"
	ViolationTimeAvg          ViolationKind = "time_avg_exceeded"
	ViolationTimeTest         ViolationKind = "time_test_exceeded"
)

// Violation is a single failed comparison against a configured limit, or a
// failed suite. Severity (warn vs error) is carried so the caller can decide
// whether the run fails.
type Violation struct {
	Kind ViolationKind `json:"type"`

	// Target is a synthetic identifier for the suite, language or test
	// involved, e.g. "<suite:shell>" or "<coverage:go>".
	Target string `json:"target"`

	// Value is the measured value and Threshold the configured limit,
	// both in the unit of the kind (ms or percent). Zero when the kind
	// has no numeric comparison.
	Value     float64 `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`

	// Advice is a human-readable explanation.
	Advice string `json:"advice"`

	// Level records the check level the violation was emitted under.
	Level CheckLevel `json:"level"`
}

// SuiteTarget formats the synthetic identifier for a suite.
func SuiteTarget(name string) string { return fmt.Sprintf("<suite:%s>", name) }

// CoverageTarget formats the synthetic identifier for a language or group.
func CoverageTarget(name string) string { return fmt.Sprintf("<coverage:%s>", name) }

// TestTarget formats the synthetic identifier for an individual test.
func TestTarget(name string) string { return fmt.Sprintf("<test:%s>", name) }

// HasErrors reports whether any violation in the list is at error level.
func HasErrors(violations []Violation) bool {
	for _, v := range violations {
		if v.Level.IsError() {
			return true
		}
	}
	return false
}
