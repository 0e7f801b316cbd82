// Package thresholds evaluates measured coverage and timing against the
// configured limits and emits violations.
package thresholds

import (
	"fmt"
	"time"

	"github.com/probelabs/suitecheck/suite"
	"github.com/probelabs/suitecheck/types"
)

// CheckCoverage compares per-language and per-group coverage against the
// configured minimums. The check level "off" suppresses everything;
// "warn" emits violations that the caller does not fail the run on.
func CheckCoverage(cfg types.ThresholdConfig, languages, groups map[string]float64) []types.Violation {
	if !cfg.Coverage.Enabled() {
		return nil
	}

	var violations []types.Violation
	if cfg.MinCoverage != nil {
		min := *cfg.MinCoverage
		for lang, actual := range languages {
			if actual < min {
				violations = append(violations, types.Violation{
					Kind:      types.ViolationCoverageBelowMin,
					Target:    types.CoverageTarget(lang),
					Value:     actual,
					Threshold: min,
					Advice:    fmt.Sprintf("Coverage %.1f%% below minimum %.1f%%", actual, min),
					Level:     cfg.Coverage,
				})
			}
		}
	}
	for group, min := range cfg.GroupMinimums {
		actual, measured := groups[group]
		if !measured || actual >= min {
			continue
		}
		violations = append(violations, types.Violation{
			Kind:      types.ViolationCoverageBelowMin,
			Target:    types.CoverageTarget(group),
			Value:     actual,
			Threshold: min,
			Advice:    fmt.Sprintf("Package '%s' coverage %.1f%% below minimum %.1f%%", group, actual, min),
			Level:     cfg.Coverage,
		})
	}
	return violations
}

// CheckTime compares one suite's measured timing against its configured
// limits. Suites without per-test timing have zero avg/max and are only
// subject to the total limit.
func CheckTime(cfg types.ThresholdConfig, suiteCfg types.SuiteConfig, result suite.Result) []types.Violation {
	if !cfg.Time.Enabled() {
		return nil
	}

	var violations []types.Violation
	name := result.Name

	if suiteCfg.MaxTotal > 0 {
		maxMs := durationMs(suiteCfg.MaxTotal)
		if result.TotalMs > maxMs {
			violations = append(violations, types.Violation{
				Kind:      types.ViolationTimeTotal,
				Target:    types.SuiteTarget(name),
				Value:     result.TotalMs,
				Threshold: maxMs,
				Advice:    fmt.Sprintf("Suite '%s' took %.0fms, exceeds max_total %.0fms", name, result.TotalMs, maxMs),
				Level:     cfg.Time,
			})
		}
	}
	if suiteCfg.MaxAvg > 0 && result.AvgMs > 0 {
		maxMs := durationMs(suiteCfg.MaxAvg)
		if result.AvgMs > maxMs {
			violations = append(violations, types.Violation{
				Kind:      types.ViolationTimeAvg,
				Target:    types.SuiteTarget(name),
				Value:     result.AvgMs,
				Threshold: maxMs,
				Advice:    fmt.Sprintf("Suite '%s' average %.0fms/test, exceeds max_avg %.0fms", name, result.AvgMs, maxMs),
				Level:     cfg.Time,
			})
		}
	}
	if suiteCfg.MaxTest > 0 && result.MaxMs > 0 {
		maxMs := durationMs(suiteCfg.MaxTest)
		if result.MaxMs > maxMs {
			testName := result.MaxTest
			if testName == "" {
				testName = "unknown"
			}
			violations = append(violations, types.Violation{
				Kind:      types.ViolationTimeTest,
				Target:    types.TestTarget(testName),
				Value:     result.MaxMs,
				Threshold: maxMs,
				Advice:    fmt.Sprintf("Test '%s' took %.0fms, exceeds max_test %.0fms", testName, result.MaxMs, maxMs),
				Level:     cfg.Time,
			})
		}
	}
	return violations
}

// CheckSuites emits one violation per failed suite. Skipped suites are not
// failures. These are always error level; a failed suite fails the run.
func CheckSuites(results *suite.Results) []types.Violation {
	var violations []types.Violation
	for _, sr := range results.Suites {
		if sr.Passed || sr.Skipped {
			continue
		}
		advice := sr.Error
		if advice == "" {
			advice = "test suite failed"
		}
		violations = append(violations, types.Violation{
			Kind:   types.ViolationSuiteFailed,
			Target: types.SuiteTarget(sr.Name),
			Advice: advice,
			Level:  types.CheckError,
		})
	}
	return violations
}

// CheckAll evaluates every threshold for a finished run.
func CheckAll(cfg types.ThresholdConfig, suiteCfgs []types.SuiteConfig, results *suite.Results) []types.Violation {
	violations := CheckSuites(results)

	// Results come back in config order, so pair each result with the
	// next config of the same display name. A plain name map would let
	// two suites sharing a runner name clobber each other's limits.
	next := 0
	for _, sr := range results.Suites {
		matched := -1
		for i := next; i < len(suiteCfgs); i++ {
			if suiteCfgs[i].DisplayName() == sr.Name {
				matched = i
				next = i + 1
				break
			}
		}
		if matched < 0 || sr.Skipped {
			continue
		}
		violations = append(violations, CheckTime(cfg, suiteCfgs[matched], sr)...)
	}

	violations = append(violations, CheckCoverage(cfg,
		results.Coverage.Percentages(),
		results.Coverage.GroupPercentages())...)
	return violations
}

func durationMs(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
