package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/executor"
	"github.com/probelabs/suitecheck/types"
)

// GoRunner executes Go test suites via `go test -json`.
type GoRunner struct{}

var _ Runner = &GoRunner{}

func (r *GoRunner) Name() string { return "go" }

func (r *GoRunner) Available(rctx *Context) bool {
	if !rctx.Tools.Go {
		return false
	}
	_, err := os.Stat(filepath.Join(rctx.Root, "go.mod"))
	return err == nil
}

func (r *GoRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	if err := RunSetup(ctx, cfg.Setup, rctx.Root); err != nil {
		return FailedRun(0, err.Error())
	}

	testPath := cfg.Path
	if testPath == "" {
		testPath = "./..."
	}
	out, failed := runTool(ctx, rctx, r.Name(), executor.Command{
		Name:    "go",
		Args:    []string{"test", "-json", testPath},
		Dir:     rctx.Root,
		Timeout: cfg.Timeout,
	})
	if failed != nil {
		return failed
	}

	result := ParseGoTestJSON(string(out.Stdout), out.Duration)
	if !out.Success() && len(result.Tests) == 0 && result.Passed {
		msg := executor.TruncateLines(string(out.Stderr), 10)
		return FailedRun(out.Duration, "go test failed:\n"+msg)
	}

	if rctx.CollectCoverage {
		cov := coverage.CollectGo(ctx, rctx.Root, cfg.Path, rctx.Tools.Go)
		if cov.HasData() {
			result.AddCoverage("go", cov)
		}
	}
	return result
}

// goTestEvent is one NDJSON event from `go test -json`.
type goTestEvent struct {
	Action  string   `json:"Action"`
	Package string   `json:"Package"`
	Test    string   `json:"Test"`
	Elapsed *float64 `json:"Elapsed"`
}

// ParseGoTestJSON parses the NDJSON event stream from `go test -json`,
// keeping pass, fail and skip events that name a test. Malformed lines
// are ignored.
func ParseGoTestJSON(stdout string, totalTime time.Duration) *TestRunResult {
	var tests []types.TestResult
	allPassed := true

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var event goTestEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		if event.Test == "" {
			continue
		}

		var elapsed time.Duration
		if event.Elapsed != nil {
			elapsed = time.Duration(*event.Elapsed * float64(time.Second))
		}
		name := goTestName(event.Package, event.Test)
		switch event.Action {
		case "pass":
			tests = append(tests, types.PassedTest(name, elapsed))
		case "fail":
			tests = append(tests, types.FailedTest(name, elapsed))
			allPassed = false
		case "skip":
			tests = append(tests, types.SkippedTest(name))
		}
	}

	var result *TestRunResult
	if allPassed {
		result = Passed(totalTime)
	} else {
		result = FailedRun(totalTime, "tests failed")
	}
	result.Tests = tests
	return result
}

func goTestName(pkg, test string) string {
	if pkg == "" {
		return test
	}
	return fmt.Sprintf("%s/%s", pkg, test)
}
