package coverage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/probelabs/suitecheck/executor"
)

// CollectCargo runs `cargo llvm-cov --json` under root and parses its
// report. Returns an unavailable result when cargo-llvm-cov is missing.
func CollectCargo(ctx context.Context, root string, available bool) *Result {
	if !available {
		return Unavailable()
	}

	start := time.Now()
	out, err := executor.Run(ctx, executor.Command{
		Name: "cargo",
		Args: []string{"llvm-cov", "--json", "--release"},
		Dir:  root,
	})
	if err != nil {
		return Failed(time.Since(start), err.Error())
	}
	if !out.Success() {
		msg := executor.TruncateLines(string(out.Stderr), 10)
		return Failed(out.Duration, "cargo llvm-cov failed:\n"+msg)
	}
	return ParseLLVMCovJSON(string(out.Stdout), out.Duration)
}

type llvmCovReport struct {
	Data []struct {
		Totals llvmCovSummary `json:"totals"`
		Files  []struct {
			Filename string         `json:"filename"`
			Summary  llvmCovSummary `json:"summary"`
		} `json:"files"`
	} `json:"data"`
}

type llvmCovSummary struct {
	Lines struct {
		Count   int64   `json:"count"`
		Covered int64   `json:"covered"`
		Percent float64 `json:"percent"`
	} `json:"lines"`
}

// ParseLLVMCovJSON parses llvm-cov's JSON export format, shared by
// `cargo llvm-cov --json` and `llvm-cov export`.
func ParseLLVMCovJSON(content string, duration time.Duration) *Result {
	var report llvmCovReport
	if err := json.Unmarshal([]byte(content), &report); err != nil {
		return Failed(duration, "failed to parse coverage JSON: "+err.Error())
	}
	if len(report.Data) == 0 {
		return Failed(duration, "no coverage data in report")
	}
	data := report.Data[0]

	result := &Result{
		Success:  true,
		Duration: duration,
		Files:    map[string]float64{},
		Packages: map[string]float64{},
	}
	pct := data.Totals.Lines.Percent
	result.LineCoverage = &pct

	packageStats := map[string][]float64{}
	for _, f := range data.Files {
		coverage := f.Summary.Lines.Percent
		result.Files[normalizeCompiledPath(f.Filename)] = coverage
		pkg := extractCratePackage(f.Filename)
		packageStats[pkg] = append(packageStats[pkg], coverage)
	}
	for pkg, pcts := range packageStats {
		var sum float64
		for _, p := range pcts {
			sum += p
		}
		result.Packages[pkg] = sum / float64(len(pcts))
	}
	return result
}

// normalizeCompiledPath strips the absolute workspace prefix from a path
// reported by llvm-cov.
func normalizeCompiledPath(path string) string {
	for _, marker := range []string{"src/", "tests/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			return path[idx:]
		}
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// extractCratePackage maps a workspace file path to its crate, or
// monorepo package, falling back to "root" for single-crate layouts.
func extractCratePackage(path string) string {
	for _, marker := range []string{"/crates/", "/packages/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			rest := path[idx+len(marker):]
			if end := strings.Index(rest, "/"); end >= 0 {
				return rest[:end]
			}
		}
	}
	return "root"
}
