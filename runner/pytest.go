package runner

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/executor"
	"github.com/probelabs/suitecheck/types"
)

// PytestRunner executes Python test suites via `pytest --durations=0 -v`.
type PytestRunner struct{}

var _ Runner = &PytestRunner{}

func (r *PytestRunner) Name() string { return "pytest" }

func (r *PytestRunner) Available(rctx *Context) bool {
	return rctx.Tools.Pytest
}

func (r *PytestRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	if err := RunSetup(ctx, cfg.Setup, rctx.Root); err != nil {
		return FailedRun(0, err.Error())
	}

	args := []string{"--durations=0", "-v"}
	if cfg.Path != "" {
		args = append(args, cfg.Path)
	}
	out, failed := runTool(ctx, rctx, r.Name(), executor.Command{
		Name:    "pytest",
		Args:    args,
		Dir:     rctx.Root,
		Timeout: cfg.Timeout,
	})
	if failed != nil {
		return failed
	}
	result := ParsePytestOutput(string(out.Stdout), out.Duration)

	if rctx.CollectCoverage {
		cov := coverage.CollectPython(ctx, rctx.Root, cfg.Path, rctx.Tools.Pytest, rctx.Tools.CoveragePy)
		if cov.HasData() {
			result.AddCoverage("python", cov)
		}
	}
	return result
}

// ParsePytestOutput parses pytest's durations section for per-test timing
// and the final summary line for overall pass/fail:
//
//	===== slowest durations =====
//	0.45s call     test_module.py::test_one
//	===== 2 passed, 1 failed in 0.68s =====
//
// Only "call" phase durations count as tests; setup and teardown rows are
// ignored.
func ParsePytestOutput(stdout string, totalTime time.Duration) *TestRunResult {
	var tests []types.TestResult
	inDurations := false
	var failedCount int

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)

		if strings.Contains(line, "slowest durations") {
			inDurations = true
			continue
		}
		if inDurations && strings.HasPrefix(line, "=====") {
			// The summary line also starts with ='s, so fall through.
			inDurations = false
		}

		if inDurations {
			if test, ok := parsePytestDurationLine(line); ok {
				tests = append(tests, test)
			}
		}

		if _, failed, ok := parsePytestSummary(line); ok {
			failedCount = failed
		}
	}

	var result *TestRunResult
	if failedCount == 0 {
		result = Passed(totalTime)
	} else {
		result = FailedRun(totalTime, "tests failed")
	}
	result.Tests = tests
	return result
}

// parsePytestDurationLine parses "0.45s call test_module.py::test_one".
func parsePytestDurationLine(line string) (types.TestResult, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[1] != "call" {
		return types.TestResult{}, false
	}
	secs, ok := strings.CutSuffix(fields[0], "s")
	if !ok {
		return types.TestResult{}, false
	}
	v, err := strconv.ParseFloat(secs, 64)
	if err != nil {
		return types.TestResult{}, false
	}
	// Failures are reported through the summary, so duration rows are
	// passing tests.
	return types.PassedTest(fields[2], time.Duration(v*float64(time.Second))), true
}

// parsePytestSummary extracts counts from lines like
// "===== 1 failed, 2 passed in 1.00s =====".
func parsePytestSummary(line string) (passed, failed int, ok bool) {
	if !strings.Contains(line, " in ") {
		return 0, 0, false
	}
	if !strings.Contains(line, " passed") && !strings.Contains(line, " failed") {
		return 0, 0, false
	}
	words := strings.Fields(line)
	for i := 0; i+1 < len(words); i++ {
		next := strings.TrimSuffix(words[i+1], ",")
		n, err := strconv.Atoi(words[i])
		if err != nil {
			continue
		}
		switch next {
		case "passed":
			passed, ok = n, true
		case "failed":
			failed, ok = n, true
		}
	}
	return passed, failed, ok
}
