// Package exitcodes defines the standard exit codes used by suitecheck.
package exitcodes

// Exit code constants used by suitecheck
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all suites pass and no error-level violations exist
// * TestFailure (1): Used when one or more suites fail or an error-level threshold is violated
// * RuntimeErr (2): Used for runtime errors such as bad configuration or unresolvable targets
const (
	Success     = 0 // All suites pass
	TestFailure = 1 // Suite failures or error-level violations
	RuntimeErr  = 2 // Runtime errors
)
