package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/executor"
	"github.com/probelabs/suitecheck/types"
)

// CargoRunner executes Rust test suites via `cargo test` and parses the
// human-readable summary output.
type CargoRunner struct{}

var _ Runner = &CargoRunner{}

func (r *CargoRunner) Name() string { return "cargo" }

func (r *CargoRunner) Available(rctx *Context) bool {
	if !rctx.Tools.Cargo {
		return false
	}
	_, err := os.Stat(filepath.Join(rctx.Root, "Cargo.toml"))
	return err == nil
}

func (r *CargoRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	if err := RunSetup(ctx, cfg.Setup, rctx.Root); err != nil {
		return FailedRun(0, err.Error())
	}

	out, failed := runTool(ctx, rctx, r.Name(), executor.Command{
		Name:    "cargo",
		Args:    []string{"test", "--release"},
		Dir:     suiteDir(rctx.Root, cfg.Path),
		Timeout: cfg.Timeout,
	})
	if failed != nil {
		return failed
	}

	result := ParseCargoOutput(string(out.Stdout), out.Duration)

	// A cargo failure with no parsed tests is a build problem, not a
	// test failure.
	if !out.Success() && len(result.Tests) == 0 && result.Passed {
		advice := CategorizeCargoError(string(out.Stderr), out.ExitCode)
		msg := executor.TruncateLines(string(out.Stderr), 10)
		return FailedRun(out.Duration, advice+"\n"+msg)
	}

	if rctx.CollectCoverage {
		cov := coverage.CollectCargo(ctx, rctx.Root, rctx.Tools.CargoLLVMCov)
		if cov.HasData() {
			result.AddCoverage("rust", cov)
		}
	}
	return result
}

// ParseCargoOutput parses cargo's test summary lines:
//
//	test tests::test_add ... ok
//	test tests::test_fail ... FAILED
//	test result: FAILED. 1 passed; 1 failed; ...
//
// Per-test durations are not reported, so every test carries zero
// duration.
func ParseCargoOutput(stdout string, totalTime time.Duration) *TestRunResult {
	var tests []types.TestResult
	suitePassed := true

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "test "); ok {
			if name, status, ok := parseCargoTestLine(rest); ok {
				switch status {
				case "ok":
					tests = append(tests, types.PassedTest(name, 0))
				case "ignored":
					tests = append(tests, types.SkippedTest(name))
				default:
					suitePassed = false
					tests = append(tests, types.FailedTest(name, 0))
				}
			}
		}
		// The summary also matches the "test " prefix above, so this is
		// a separate check.
		if strings.HasPrefix(line, "test result: ") && strings.Contains(line, "FAILED") {
			suitePassed = false
		}
	}

	var result *TestRunResult
	if suitePassed {
		result = Passed(totalTime)
	} else {
		result = FailedRun(totalTime, "tests failed")
	}
	result.Tests = tests
	return result
}

// parseCargoTestLine splits "<name> ... ok|FAILED|ignored".
func parseCargoTestLine(rest string) (name, status string, ok bool) {
	sep := strings.LastIndex(rest, " ... ")
	if sep < 0 {
		return "", "", false
	}
	name = rest[:sep]
	status = rest[sep+5:]
	if status != "ok" && status != "FAILED" && status != "ignored" {
		return "", "", false
	}
	return name, status, true
}

// CategorizeCargoError turns cargo's stderr and exit code into actionable
// advice for the failure message.
func CategorizeCargoError(stderr string, exitCode int) string {
	switch {
	case strings.Contains(stderr, "error[E") || strings.Contains(stderr, "could not compile"):
		return "compilation failed - fix build errors first"
	case strings.Contains(stderr, "no test target") || strings.Contains(stderr, "can't find"):
		return "no tests found - check test file paths"
	case exitCode == 137 || exitCode == 124:
		return "test timed out - check for infinite loops or deadlocks"
	case strings.Contains(stderr, "out of memory") || exitCode == 139:
		return "out of memory - reduce test parallelism or resource usage"
	case strings.Contains(stderr, "linker") || strings.Contains(stderr, "undefined reference"):
		return "linking failed - check dependencies and feature flags"
	default:
		return "tests failed"
	}
}

// suiteDir joins the suite's configured path onto the project root.
func suiteDir(root, path string) string {
	if path == "" {
		return root
	}
	return filepath.Join(root, path)
}
