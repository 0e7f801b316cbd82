// Package executor spawns external tools with captured output and an
// optional wall-clock timeout enforced by a polling supervisor.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// PollInterval is how often the supervisor checks a running child for
// timeout expiry.
const PollInterval = 50 * time.Millisecond

// Command describes one child process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the current environment.
	Env []string
	// Timeout of zero means wait indefinitely.
	Timeout time.Duration
}

// Output is the captured result of a child process. It is returned for
// every process that was successfully spawned, including timed-out and
// non-zero-exit runs; already-captured output is always preserved.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
	// Cancelled is set when the context was cancelled before the process
	// finished, typically an operator interrupt. Distinct from TimedOut.
	Cancelled bool
	Duration time.Duration
}

// Success reports whether the process ran to completion with exit code 0.
func (o *Output) Success() bool {
	return !o.TimedOut && !o.Cancelled && o.ExitCode == 0
}

// SpawnError indicates the process never started (binary missing,
// permission denied). It is distinct from a non-zero exit, which is a
// normal Output.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IsSpawnError reports whether err wraps a SpawnError.
func IsSpawnError(err error) bool {
	var se *SpawnError
	return errors.As(err, &se)
}

// Run executes cmd and waits for it to finish or time out. The returned
// error is non-nil only for spawn failures; tool failures are reported
// through Output.ExitCode and Output.TimedOut.
func Run(ctx context.Context, cmd Command) (*Output, error) {
	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, &SpawnError{Name: cmd.Name, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	deadline := time.Time{}
	if cmd.Timeout > 0 {
		deadline = start.Add(cmd.Timeout)
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			out := &Output{
				Stdout:   stdout.Bytes(),
				Stderr:   stderr.Bytes(),
				Duration: time.Since(start),
			}
			var exitErr *exec.ExitError
			switch {
			case err == nil:
				out.ExitCode = 0
			case errors.As(err, &exitErr):
				out.ExitCode = exitErr.ExitCode()
			default:
				// Wait failed for a reason other than exit status
				// (e.g. I/O error copying output).
				return nil, &SpawnError{Name: cmd.Name, Err: err}
			}
			return out, nil

		case <-ctx.Done():
			out := kill(c, done, &stdout, &stderr, start)
			out.Cancelled = true
			return out, nil

		case <-ticker.C:
			if !deadline.IsZero() && time.Now().After(deadline) {
				out := kill(c, done, &stdout, &stderr, start)
				out.TimedOut = true
				return out, nil
			}
		}
	}
}

// kill terminates the child, waits for teardown and returns whatever output
// had been captured so far.
func kill(c *exec.Cmd, done chan error, stdout, stderr *bytes.Buffer, start time.Time) *Output {
	if c.Process != nil {
		_ = c.Process.Kill()
	}
	<-done
	return &Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
}

// RunShell executes a shell command line, used for setup commands and the
// custom runner.
func RunShell(ctx context.Context, command, dir string, timeout time.Duration) (*Output, error) {
	if runtime.GOOS == "windows" {
		return Run(ctx, Command{Name: "cmd", Args: []string{"/C", command}, Dir: dir, Timeout: timeout})
	}
	return Run(ctx, Command{Name: "sh", Args: []string{"-c", command}, Dir: dir, Timeout: timeout})
}

// TruncateLines limits text to its first n lines, used to bound tool error
// output embedded in diagnostics.
func TruncateLines(text string, n int) string {
	lines := bytes.Split([]byte(text), []byte("\n"))
	if len(lines) <= n {
		return text
	}
	return string(bytes.Join(lines[:n], []byte("\n")))
}
