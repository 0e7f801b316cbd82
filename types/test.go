package types

import "time"

// TestResult captures the outcome of a single test reported by a tool.
// Duration is zero when the underlying tool does not report per-test timing.
type TestResult struct {
	Name     string
	Passed   bool
	Skipped  bool
	Duration time.Duration
}

// PassedTest creates a passing test result.
func PassedTest(name string, d time.Duration) TestResult {
	return TestResult{Name: name, Passed: true, Duration: d}
}

// FailedTest creates a failing test result.
func FailedTest(name string, d time.Duration) TestResult {
	return TestResult{Name: name, Duration: d}
}

// SkippedTest creates a skipped (ignored) test result.
func SkippedTest(name string) TestResult {
	return TestResult{Name: name, Passed: true, Skipped: true}
}
