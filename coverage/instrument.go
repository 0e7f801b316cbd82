package coverage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/probelabs/suitecheck/executor"
)

// Build holds the artifacts of one coverage-instrumented build: the
// profile fragment directory and the built binary paths by target name.
type Build struct {
	ProfileDir string
	Binaries   map[string]string
}

// BuildInstrumented compiles the named cargo binary targets with LLVM
// source coverage instrumentation and a deterministic profile directory.
// A build failure reports the compiler output truncated, and leaves the
// profile directory intact for a retry.
func BuildInstrumented(ctx context.Context, targets []string, root string) (*Build, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets specified")
	}

	profileDir := filepath.Join(root, "target", "suitecheck-coverage")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}

	args := []string{"build"}
	for _, t := range targets {
		args = append(args, "--bin", t)
	}
	out, err := executor.Run(ctx, executor.Command{
		Name: "cargo",
		Args: args,
		Dir:  root,
		Env: []string{
			"RUSTFLAGS=-C instrument-coverage",
			"LLVM_PROFILE_FILE=" + filepath.Join(profileDir, "%p-%m.profraw"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build instrumented binaries: %w", err)
	}
	if !out.Success() {
		msg := executor.TruncateLines(string(out.Stderr), 10)
		return nil, fmt.Errorf("instrumented build failed:\n%s", msg)
	}

	binaries := map[string]string{}
	for _, t := range targets {
		path := filepath.Join(root, "target", "debug", t)
		if _, err := os.Stat(path); err == nil {
			binaries[t] = path
		}
	}
	return &Build{ProfileDir: profileDir, Binaries: binaries}, nil
}

// Env returns the environment entries a suite must run with so the
// instrumented binaries write profile fragments into the build's
// profile directory.
func (b *Build) Env() []string {
	return []string{
		"LLVM_PROFILE_FILE=" + filepath.Join(b.ProfileDir, "%p-%m.profraw"),
	}
}

// Collect merges the raw per-process profile fragments written during the
// suite run and exports a line-coverage report for the built binaries.
func (b *Build) Collect(ctx context.Context, root string) *Result {
	start := time.Now()

	fragments, err := b.profileFragments()
	if err != nil || len(fragments) == 0 {
		return Failed(time.Since(start), "no coverage profiles found")
	}
	if len(b.Binaries) == 0 {
		return Failed(time.Since(start), "no binaries to analyze")
	}

	merged := filepath.Join(b.ProfileDir, "merged.profdata")
	mergeArgs := append([]string{"merge", "-sparse"}, fragments...)
	mergeArgs = append(mergeArgs, "-o", merged)
	out, err := executor.Run(ctx, executor.Command{Name: "llvm-profdata", Args: mergeArgs, Dir: root})
	if err != nil {
		return Failed(time.Since(start), err.Error())
	}
	if !out.Success() {
		msg := executor.TruncateLines(string(out.Stderr), 5)
		return Failed(time.Since(start), "llvm-profdata merge failed: "+msg)
	}

	exportArgs := []string{"export", "-format=text", "-instr-profile", merged}
	first := true
	for _, bin := range b.Binaries {
		if first {
			exportArgs = append(exportArgs, bin)
			first = false
		} else {
			exportArgs = append(exportArgs, "-object", bin)
		}
	}
	out, err = executor.Run(ctx, executor.Command{Name: "llvm-cov", Args: exportArgs, Dir: root})
	if err != nil {
		return Failed(time.Since(start), err.Error())
	}
	if !out.Success() {
		msg := executor.TruncateLines(string(out.Stderr), 5)
		return Failed(time.Since(start), "llvm-cov export failed: "+msg)
	}

	result := ParseLLVMCovJSON(string(out.Stdout), time.Since(start))
	return result
}

// Cleanup deletes the profile fragment directory after the report has
// been produced.
func (b *Build) Cleanup() {
	_ = os.RemoveAll(b.ProfileDir)
}

func (b *Build) profileFragments() ([]string, error) {
	entries, err := os.ReadDir(b.ProfileDir)
	if err != nil {
		return nil, err
	}
	var fragments []string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".profraw" {
			fragments = append(fragments, filepath.Join(b.ProfileDir, entry.Name()))
		}
	}
	return fragments, nil
}
