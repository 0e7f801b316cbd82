package runner

import (
	"context"
	"fmt"

	"github.com/probelabs/suitecheck/executor"
	"github.com/probelabs/suitecheck/types"
)

// CustomRunner executes an arbitrary shell command and reports pass or
// fail from its exit code. It provides no per-test timing.
type CustomRunner struct{}

var _ Runner = &CustomRunner{}

func (r *CustomRunner) Name() string { return "custom" }

// Available always returns true; whether the command exists is found out
// when it runs.
func (r *CustomRunner) Available(*Context) bool { return true }

func (r *CustomRunner) Run(ctx context.Context, cfg types.SuiteConfig, rctx *Context) *TestRunResult {
	if cfg.Command == "" {
		return FailedRun(0, "custom runner requires 'command' field")
	}
	if err := RunSetup(ctx, cfg.Setup, rctx.Root); err != nil {
		return FailedRun(0, err.Error())
	}

	out, err := executor.RunShell(ctx, cfg.Command, suiteDir(rctx.Root, cfg.Path), cfg.Timeout)
	if err != nil {
		return FailedRun(0, err.Error())
	}
	if out.Cancelled {
		return FailedRun(out.Duration, CancelledError(r.Name()))
	}
	if out.TimedOut {
		return FailedRun(out.Duration, TimeoutError(r.Name(), cfg.Timeout))
	}
	if out.Success() {
		return Passed(out.Duration)
	}

	msg := executor.TruncateLines(string(out.Stderr), 10)
	if msg == "" {
		msg = fmt.Sprintf("command failed with exit code %d", out.ExitCode)
	}
	return FailedRun(out.Duration, msg)
}
