// Package runner adapts each supported test tool to a common interface:
// invoke the tool, parse its output into per-test results, and collect
// coverage when asked.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/probelabs/suitecheck/executor"
	"github.com/probelabs/suitecheck/targets"
	"github.com/probelabs/suitecheck/types"
)

// Toolchain records which external tools are installed. It is probed once
// per invocation and passed through Context, so tests can inject
// availability without touching global state.
type Toolchain struct {
	Go           bool
	Cargo        bool
	CargoLLVMCov bool
	Bats         bool
	Pytest       bool
	CoveragePy   bool
	Npx          bool
	Bun          bool
	Kcov         bool
	LLVMProfdata bool
}

// ProbeToolchain checks PATH for every tool the runners may need.
func ProbeToolchain() *Toolchain {
	return &Toolchain{
		Go:           executor.LookPath("go"),
		Cargo:        executor.LookPath("cargo"),
		CargoLLVMCov: executor.LookPath("cargo-llvm-cov"),
		Bats:         executor.LookPath("bats"),
		Pytest:       executor.LookPath("pytest"),
		CoveragePy:   executor.LookPath("coverage"),
		Npx:          executor.LookPath("npx"),
		Bun:          executor.LookPath("bun"),
		Kcov:         executor.LookPath("kcov"),
		LLVMProfdata: executor.LookPath("llvm-profdata"),
	}
}

// Context carries the per-invocation state shared by all runners.
type Context struct {
	// Root is the project root directory.
	Root string
	// CIMode selects the full run: all suites, metrics complete.
	CIMode bool
	// CollectCoverage enables best-effort coverage collection.
	CollectCoverage bool
	// Meta is the target resolution input derived from configuration.
	Meta targets.Metadata
	// Tools is the probed tool availability.
	Tools *Toolchain
	// Log is the structured logger runners report progress through.
	Log logrus.FieldLogger
}

// Runner executes one kind of test suite.
type Runner interface {
	// Name is the runner identifier used in configuration.
	Name() string
	// Available reports whether the runner can execute in this
	// environment and project.
	Available(rctx *Context) bool
	// Run executes the suite and never returns nil.
	Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult
}

// All returns every registered runner.
func All() []Runner {
	return []Runner{
		&CargoRunner{},
		&GoRunner{},
		&BatsRunner{},
		&PytestRunner{},
		&JestRunner{},
		&VitestRunner{},
		&BunRunner{},
		&CustomRunner{},
	}
}

// Get looks up a runner by name.
func Get(name string) (Runner, bool) {
	for _, r := range All() {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Names returns the identifiers of all registered runners.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name()
	}
	return names
}

// RunSetup executes a suite's setup command through the shell. A failed
// setup fails the suite before its tests ever run.
func RunSetup(ctx context.Context, setup, root string) error {
	if setup == "" {
		return nil
	}
	out, err := executor.RunShell(ctx, setup, root, 0)
	if err != nil {
		return fmt.Errorf("failed to execute setup: %w", err)
	}
	if !out.Success() {
		msg := executor.TruncateLines(string(out.Stderr), 5)
		return fmt.Errorf("setup command failed: %s\n%s", setup, msg)
	}
	return nil
}

// TimeoutError formats a timeout failure with runner-specific advice.
func TimeoutError(runnerName string, timeout time.Duration) string {
	advice := "check for slow or hanging tests"
	switch runnerName {
	case "cargo":
		advice = "check for infinite loops or deadlocks"
	case "go":
		advice = "check for goroutine leaks or infinite loops"
	case "bats":
		advice = "check for infinite loops in shell scripts"
	case "pytest":
		advice = "check for slow tests or missing mocks"
	case "jest", "vitest", "bun":
		advice = "check for unresolved promises or infinite loops"
	}
	return fmt.Sprintf("timed out after %s - %s", timeout, advice)
}

// CancelledError formats an interruption, kept distinct from a timeout so
// an operator's Ctrl-C does not read as a tuning problem.
func CancelledError(runnerName string) string {
	return fmt.Sprintf("%s run cancelled before completion", runnerName)
}

// runTool is the shared spawn-and-wait path: it executes the tool,
// converting spawn failures and timeouts into terminal results and
// handing everything else back for parsing.
func runTool(ctx context.Context, rctx *Context, runnerName string, cmd executor.Command) (*executor.Output, *TestRunResult) {
	start := time.Now()
	out, err := executor.Run(ctx, cmd)
	if err != nil {
		return nil, FailedRun(time.Since(start), err.Error())
	}
	if out.Cancelled {
		return nil, FailedRun(out.Duration, CancelledError(runnerName))
	}
	if out.TimedOut {
		timeout := cmd.Timeout
		if timeout == 0 {
			timeout = out.Duration
		}
		return nil, FailedRun(out.Duration, TimeoutError(runnerName, timeout))
	}
	return out, nil
}
