package types

import "time"

// CheckLevel controls how a category of threshold violations is treated.
type CheckLevel string

const (
	CheckOff   CheckLevel = "off"
	CheckWarn  CheckLevel = "warn"
	CheckError CheckLevel = "error"
)

// Enabled reports whether checks at this level should run at all.
func (l CheckLevel) Enabled() bool {
	return l != CheckOff
}

// IsError reports whether violations at this level should fail the run.
func (l CheckLevel) IsError() bool {
	return l == CheckError
}

// SuiteConfig describes a single configured test suite. It is owned by the
// configuration layer; the engine only reads it.
type SuiteConfig struct {
	// Runner name: "cargo", "go", "bats", "pytest", "vitest", "jest",
	// "bun" or "custom".
	Runner string `yaml:"runner"`

	// Name overrides the display name (defaults to the runner name).
	Name string `yaml:"name,omitempty"`

	// Path is the test directory or pattern handed to the tool.
	Path string `yaml:"path,omitempty"`

	// Setup is a shell command run before the suite.
	Setup string `yaml:"setup,omitempty"`

	// Command is the shell command for the "custom" runner.
	Command string `yaml:"command,omitempty"`

	// Targets are coverage targets: binary names or glob patterns.
	Targets []string `yaml:"targets,omitempty"`

	// CI restricts the suite to full-run (CI) mode.
	CI bool `yaml:"ci,omitempty"`

	// Timeout kills the suite's process when exceeded.
	Timeout time.Duration `yaml:"-"`

	// Timing thresholds, zero means unset.
	MaxTotal time.Duration `yaml:"-"`
	MaxAvg   time.Duration `yaml:"-"`
	MaxTest  time.Duration `yaml:"-"`
}

// DisplayName returns the configured name, falling back to the runner.
func (c SuiteConfig) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Runner
}

// ThresholdConfig carries the independently configurable check levels and
// limits consumed by the threshold checker.
type ThresholdConfig struct {
	// Time is the check level for timing thresholds.
	Time CheckLevel `yaml:"-"`

	// Coverage is the check level for coverage thresholds.
	Coverage CheckLevel `yaml:"-"`

	// MinCoverage is the global minimum line coverage percentage
	// (0-100); nil means no global minimum.
	MinCoverage *float64 `yaml:"min,omitempty"`

	// GroupMinimums maps a coverage group (package rollup) to its
	// minimum percentage.
	GroupMinimums map[string]float64 `yaml:"groups,omitempty"`
}
