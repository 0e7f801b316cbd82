package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/executor"
	"github.com/probelabs/suitecheck/types"
)

// JestRunner executes JavaScript test suites via `npx jest --json`.
type JestRunner struct{}

var _ Runner = &JestRunner{}

func (r *JestRunner) Name() string { return "jest" }

func (r *JestRunner) Available(rctx *Context) bool {
	return rctx.Tools.Npx && hasPackageJSON(rctx.Root)
}

func (r *JestRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	return runJS(ctx, cfg, rctx, r.Name(), "npx", jsToolArgs("jest", []string{"--json"}, rctx, cfg))
}

// VitestRunner executes JavaScript test suites via
// `npx vitest run --reporter=json`.
type VitestRunner struct{}

var _ Runner = &VitestRunner{}

func (r *VitestRunner) Name() string { return "vitest" }

func (r *VitestRunner) Available(rctx *Context) bool {
	return rctx.Tools.Npx && hasPackageJSON(rctx.Root)
}

func (r *VitestRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	return runJS(ctx, cfg, rctx, r.Name(), "npx", jsToolArgs("vitest", []string{"run", "--reporter=json"}, rctx, cfg))
}

// BunRunner executes JavaScript test suites via `bun test`. Bun's JSON
// reporter emits the jest result shape.
type BunRunner struct{}

var _ Runner = &BunRunner{}

func (r *BunRunner) Name() string { return "bun" }

func (r *BunRunner) Available(rctx *Context) bool {
	return rctx.Tools.Bun && hasPackageJSON(rctx.Root)
}

func (r *BunRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	args := []string{"test", "--reporter=json"}
	if rctx.CollectCoverage && len(cfg.Targets) > 0 {
		args = append(args, "--coverage", "--coverage-reporter=lcov")
	}
	if cfg.Path != "" {
		args = append(args, cfg.Path)
	}
	return runJS(ctx, cfg, rctx, r.Name(), "bun", args)
}

func hasPackageJSON(root string) bool {
	_, err := os.Stat(filepath.Join(root, "package.json"))
	return err == nil
}

// jsToolArgs builds the npx argument list for a JS test tool, appending
// its LCOV coverage flags when coverage is requested.
func jsToolArgs(tool string, base []string, rctx *Context, cfg types.SuiteConfig) []string {
	args := append([]string{tool}, base...)
	if rctx.CollectCoverage && len(cfg.Targets) > 0 {
		switch tool {
		case "jest":
			args = append(args, "--coverage", "--coverageReporters=lcov")
		case "vitest":
			args = append(args, "--coverage", "--coverage.reporter=lcov")
		}
	}
	if cfg.Path != "" {
		args = append(args, cfg.Path)
	}
	return args
}

func runJS(ctx context.Context, cfg types.SuiteConfig, rctx *Context, runnerName, bin string, args []string) *TestRunResult {
	if err := RunSetup(ctx, cfg.Setup, rctx.Root); err != nil {
		return FailedRun(0, err.Error())
	}

	out, failed := runTool(ctx, rctx, runnerName, executor.Command{
		Name:    bin,
		Args:    args,
		Dir:     rctx.Root,
		Timeout: cfg.Timeout,
	})
	if failed != nil {
		return failed
	}

	// The JSON reporters write to stdout or stderr depending on tool.
	text := string(out.Stdout)
	if !strings.Contains(text, "{") {
		text = string(out.Stderr)
	}
	result := ParseJestJSON(text, out.Duration)

	if rctx.CollectCoverage && len(cfg.Targets) > 0 {
		lcovPath := filepath.Join(rctx.Root, "coverage", "lcov.info")
		if content, err := os.ReadFile(lcovPath); err == nil {
			cov := coverage.ParseLCOV(string(content), 0)
			if cov.HasData() {
				result.AddCoverage("javascript", cov)
			}
		}
	}
	return result
}

// jestOutput is the result shape shared by jest, vitest's json reporter
// and bun test.
type jestOutput struct {
	Success     bool `json:"success"`
	TestResults []struct {
		Name             string `json:"name"`
		AssertionResults []struct {
			FullName string `json:"fullName"`
			Status   string `json:"status"`
			Duration *int64 `json:"duration"`
		} `json:"assertionResults"`
	} `json:"testResults"`
}

// ParseJestJSON parses the jest JSON result shape, locating the JSON
// object inside mixed output. Unparseable output without failure markers
// is treated as a pass, since several reporters stay silent on success.
func ParseJestJSON(text string, totalTime time.Duration) *TestRunResult {
	jsonStr, found := FindJSONObject(text)
	var output jestOutput
	if !found || json.Unmarshal([]byte(jsonStr), &output) != nil {
		if strings.Contains(text, "FAIL") || strings.Contains(text, "Error") {
			return FailedRun(totalTime, "test run failed (no JSON output)")
		}
		return Passed(totalTime)
	}

	var tests []types.TestResult
	allPassed := true
	for _, file := range output.TestResults {
		for _, assertion := range file.AssertionResults {
			var duration time.Duration
			if assertion.Duration != nil {
				duration = time.Duration(*assertion.Duration) * time.Millisecond
			}
			switch assertion.Status {
			case "passed":
				tests = append(tests, types.PassedTest(assertion.FullName, duration))
			case "skipped", "pending", "todo":
				tests = append(tests, types.SkippedTest(assertion.FullName))
			default:
				tests = append(tests, types.FailedTest(assertion.FullName, duration))
				allPassed = false
			}
		}
	}

	var result *TestRunResult
	if allPassed && output.Success {
		result = Passed(totalTime)
	} else {
		result = FailedRun(totalTime, "tests failed")
	}
	result.Tests = tests
	return result
}

// FindJSONObject locates the first complete JSON object in mixed text,
// tracking brace depth so nested objects stay intact.
func FindJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
