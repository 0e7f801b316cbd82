package runner

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/executor"
	"github.com/probelabs/suitecheck/targets"
	"github.com/probelabs/suitecheck/types"
)

// BatsRunner executes shell test suites via `bats --timing` and parses the
// TAP output. When coverage is requested it instruments compiled binary
// targets before the run and wraps the scripts in kcov after it.
type BatsRunner struct{}

var _ Runner = &BatsRunner{}

func (r *BatsRunner) Name() string { return "bats" }

func (r *BatsRunner) Available(rctx *Context) bool {
	if !rctx.Tools.Bats {
		return false
	}
	_, err := os.Stat(filepath.Join(rctx.Root, "tests"))
	return err == nil
}

func (r *BatsRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	if err := RunSetup(ctx, cfg.Setup, rctx.Root); err != nil {
		return FailedRun(0, err.Error())
	}

	testPath := cfg.Path
	if testPath == "" {
		testPath = "tests/"
	}

	// An unresolvable target is a configuration error; fail before any
	// process is spawned.
	var resolved []targets.Resolved
	if len(cfg.Targets) > 0 {
		var err error
		resolved, err = targets.ResolveAll(cfg.Targets, rctx.Meta)
		if err != nil {
			return FailedRun(0, err.Error())
		}
	}

	// Instrumented binaries must exist before bats runs against them.
	var build *coverage.Build
	if rctx.CollectCoverage && len(cfg.Targets) > 0 {
		if names := targets.BinaryNames(resolved); len(names) > 0 {
			var err error
			build, err = coverage.BuildInstrumented(ctx, names, rctx.Root)
			if err != nil {
				rctx.Log.WithError(err).Warn("instrumented build failed, skipping binary coverage")
			}
		}
	}

	cmd := executor.Command{
		Name:    "bats",
		Args:    []string{"--timing", testPath},
		Dir:     rctx.Root,
		Timeout: cfg.Timeout,
	}
	if build != nil {
		cmd.Env = build.Env()
	}
	out, failed := runTool(ctx, rctx, r.Name(), cmd)
	if failed != nil {
		if build != nil {
			build.Cleanup()
		}
		return failed
	}

	result := ParseTAP(string(out.Stdout), out.Duration)

	if rctx.CollectCoverage && len(cfg.Targets) > 0 {
		if scripts := targets.ScriptFiles(resolved); len(scripts) > 0 {
			cov := coverage.CollectShell(ctx, scripts, []string{"bats", testPath}, rctx.Root, rctx.Tools.Kcov)
			if cov.Success {
				result.AddCoverage("shell", cov)
			}
		}
		if build != nil {
			cov := build.Collect(ctx, rctx.Root)
			if cov.Success && cov.HasData() {
				result.AddCoverage("rust", cov)
			}
			build.Cleanup()
		}
	}
	return result
}

// ParseTAP parses TAP output from bats --timing. Plan lines (1..N) and
// comments are ignored. Result lines carry an optional trailing
// "in <N>ms" or "in <N.NN>s" timing suffix; without one the test gets
// zero duration.
func ParseTAP(stdout string, totalTime time.Duration) *TestRunResult {
	var tests []types.TestResult
	allPassed := true

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(stripansi.Strip(line))
		if strings.HasPrefix(line, "1..") || strings.HasPrefix(line, "#") {
			continue
		}
		test, ok := parseTAPLine(line)
		if !ok {
			continue
		}
		if !test.Passed && !test.Skipped {
			allPassed = false
		}
		tests = append(tests, test)
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

func parseTAPLine(line string) (types.TestResult, bool) {
	var passed bool
	var rest string
	if r, ok := strings.CutPrefix(line, "ok "); ok {
		passed, rest = true, r
	} else if r, ok := strings.CutPrefix(line, "not ok "); ok {
		passed, rest = false, r
	} else {
		return types.TestResult{}, false
	}

	// Drop the ordinal.
	rest = strings.TrimLeft(rest, "0123456789 ")

	if passed {
		if desc, directive, found := strings.Cut(rest, " # "); found {
			d := strings.ToLower(directive)
			if strings.HasPrefix(d, "skip") {
				return types.SkippedTest(strings.TrimSpace(desc)), true
			}
		}
	}

	name, duration := splitTAPTiming(rest)
	if passed {
		return types.PassedTest(name, duration), true
	}
	return types.FailedTest(name, duration), true
}

// splitTAPTiming strips a trailing "in <N>ms" / "in <N.NN>s" suffix.
func splitTAPTiming(desc string) (string, time.Duration) {
	idx := strings.LastIndex(desc, " in ")
	if idx < 0 {
		return desc, 0
	}
	if d, ok := parseTAPDuration(desc[idx+4:]); ok {
		return desc[:idx], d
	}
	return desc, 0
}

func parseTAPDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if ms, ok := strings.CutSuffix(s, "ms"); ok {
		v, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			return 0, false
		}
		return time.Duration(v) * time.Millisecond, true
	}
	if secs, ok := strings.CutSuffix(s, "s"); ok {
		v, err := strconv.ParseFloat(secs, 64)
		if err != nil {
			return 0, false
		}
		return time.Duration(v * float64(time.Second)), true
	}
	return 0, false
}
