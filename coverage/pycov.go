package coverage

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/probelabs/suitecheck/executor"
)

// CollectPython measures line coverage for a python suite. It prefers
// pytest's cov plugin and falls back to a standalone coverage.py run;
// both end in a coverage.json report. Returns an unavailable result when
// neither tool can produce one.
func CollectPython(ctx context.Context, root, testPath string, pytestAvailable, coveragePy bool) *Result {
	if !pytestAvailable && !coveragePy {
		return Unavailable()
	}

	sourceDir := "."
	if info, err := os.Stat(filepath.Join(root, "src")); err == nil && info.IsDir() {
		sourceDir = "src"
	}

	if pytestAvailable {
		result, pluginMissing := runPytestCov(ctx, root, testPath, sourceDir)
		if result.Success {
			return result
		}
		if !coveragePy {
			if pluginMissing {
				return Unavailable()
			}
			return result
		}
	}
	if coveragePy {
		return runCoveragePy(ctx, root, testPath, sourceDir)
	}
	return Unavailable()
}

// runPytestCov runs `pytest --cov=<dir> --cov-report=json -q` and parses
// coverage.json. Coverage may exist even when tests fail, so the report
// file decides the outcome. The second return is true when pytest rejected
// the cov flags, meaning the plugin is not installed.
func runPytestCov(ctx context.Context, root, testPath, sourceDir string) (*Result, bool) {
	removeCoverageFiles(root)
	start := time.Now()

	args := []string{"--cov=" + sourceDir, "--cov-report=json", "-q"}
	if testPath != "" {
		args = append(args, testPath)
	}
	out, err := executor.Run(ctx, executor.Command{Name: "pytest", Args: args, Dir: root})
	if err != nil {
		return Failed(time.Since(start), err.Error()), false
	}

	jsonPath := filepath.Join(root, "coverage.json")
	if content, readErr := os.ReadFile(jsonPath); readErr == nil {
		removeCoverageFiles(root)
		return ParsePythonCoverageJSON(string(content), out.Duration), false
	}

	stderr := string(out.Stderr)
	if strings.Contains(stderr, "unrecognized arguments") {
		return Failed(out.Duration, "pytest-cov not installed"), true
	}
	if !out.Success() {
		msg := executor.TruncateLines(stderr, 5)
		return Failed(out.Duration, "pytest --cov failed:\n"+msg), false
	}
	return Failed(out.Duration, "pytest --cov did not produce coverage.json"), false
}

// runCoveragePy runs the suite under `coverage run -m pytest`, exports
// coverage.json and parses it, with coverage.xml as a fallback.
func runCoveragePy(ctx context.Context, root, testPath, sourceDir string) *Result {
	removeCoverageFiles(root)
	start := time.Now()

	args := []string{"run", "--source", sourceDir, "-m", "pytest", "-q"}
	if testPath != "" {
		args = append(args, testPath)
	}
	out, err := executor.Run(ctx, executor.Command{Name: "coverage", Args: args, Dir: root})
	if err != nil {
		return Failed(time.Since(start), err.Error())
	}

	if _, exportErr := executor.Run(ctx, executor.Command{
		Name: "coverage",
		Args: []string{"json", "-o", "coverage.json"},
		Dir:  root,
	}); exportErr != nil {
		return Failed(time.Since(start), exportErr.Error())
	}
	duration := time.Since(start)

	if content, readErr := os.ReadFile(filepath.Join(root, "coverage.json")); readErr == nil {
		removeCoverageFiles(root)
		return ParsePythonCoverageJSON(string(content), duration)
	}
	if content, readErr := os.ReadFile(filepath.Join(root, "coverage.xml")); readErr == nil {
		removeCoverageFiles(root)
		return parsePythonCobertura(string(content), duration)
	}

	if !out.Success() {
		msg := executor.TruncateLines(string(out.Stderr), 5)
		return Failed(duration, "coverage run failed:\n"+msg)
	}
	return Failed(duration, "coverage.py did not produce a report")
}

func removeCoverageFiles(root string) {
	for _, name := range []string{"coverage.json", "coverage.xml", ".coverage"} {
		_ = os.Remove(filepath.Join(root, name))
	}
}

// pyCoverageReport is the subset of coverage.py's JSON report format
// needed for line coverage.
type pyCoverageReport struct {
	Files map[string]struct {
		Summary struct {
			PercentCovered float64 `json:"percent_covered"`
		} `json:"summary"`
	} `json:"files"`
	Totals struct {
		PercentCovered float64 `json:"percent_covered"`
	} `json:"totals"`
}

// ParsePythonCoverageJSON parses a coverage.py JSON report. The overall
// percentage comes from the totals block; per-file entries feed the
// per-package rollup.
func ParsePythonCoverageJSON(content string, duration time.Duration) *Result {
	var report pyCoverageReport
	if err := json.Unmarshal([]byte(content), &report); err != nil {
		return Failed(duration, "failed to parse coverage.json: "+err.Error())
	}

	result := &Result{
		Success:  true,
		Duration: duration,
		Files:    map[string]float64{},
		Packages: map[string]float64{},
	}
	overall := report.Totals.PercentCovered
	result.LineCoverage = &overall

	packageStats := map[string][]float64{}
	for path, file := range report.Files {
		pct := file.Summary.PercentCovered
		normalized := normalizePythonPath(path)
		result.Files[normalized] = pct
		pkg := extractPythonPackage(normalized)
		packageStats[pkg] = append(packageStats[pkg], pct)
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

// parsePythonCobertura parses the coverage.xml fallback that coverage.py
// emits, applying python path normalization instead of the shell rules.
func parsePythonCobertura(content string, duration time.Duration) *Result {
	var report coberturaReport
	if err := xml.Unmarshal([]byte(content), &report); err != nil {
		return Failed(duration, "failed to parse coverage XML: "+err.Error())
	}

	result := &Result{
		Success:  true,
		Duration: duration,
		Files:    map[string]float64{},
		Packages: map[string]float64{},
	}
	packageStats := map[string][]float64{}
	for _, pkg := range report.Packages {
		for _, class := range pkg.Classes {
			rate, err := strconv.ParseFloat(class.LineRate, 64)
			if err != nil || class.Filename == "" {
				continue
			}
			pct := rate * 100.0
			normalized := normalizePythonPath(class.Filename)
			result.Files[normalized] = pct
			name := extractPythonPackage(normalized)
			packageStats[name] = append(packageStats[name], pct)
		}
	}
	for pkg, pcts := range packageStats {
		var sum float64
		for _, p := range pcts {
			sum += p
		}
		result.Packages[pkg] = sum / float64(len(pcts))
	}
	if rate, err := strconv.ParseFloat(report.LineRate, 64); err == nil {
		pct := rate * 100.0
		result.LineCoverage = &pct
	} else if len(result.Files) > 0 {
		mean := meanOf(result.Files)
		result.LineCoverage = &mean
	}
	return result
}

// normalizePythonPath trims a reported file path to its project-relative
// form: src-layout and tests paths keep their marker, site-packages files
// collapse to the bare filename.
func normalizePythonPath(path string) string {
	for _, marker := range []string{"/src/", "/tests/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			return path[idx+1:]
		}
	}
	for _, external := range []string{"/site-packages/", "/lib/python"} {
		if strings.Contains(path, external) {
			return filepath.Base(path)
		}
	}
	for _, marker := range []string{"src/", "lib/", "app/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			return path[idx:]
		}
	}
	if strings.HasPrefix(path, "/") {
		return filepath.Base(path)
	}
	return path
}

// extractPythonPackage maps a normalized path to its package rollup:
// "src/<pkg>/..." yields the package, tests group together, flat layouts
// use the first segment, a bare file is "root".
func extractPythonPackage(path string) string {
	if rest, ok := strings.CutPrefix(path, "src/"); ok {
		if end := strings.Index(rest, "/"); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if path == "tests" || strings.HasPrefix(path, "tests/") {
		return "tests"
	}
	if end := strings.Index(path, "/"); end >= 0 {
		return path[:end]
	}
	return "root"
}
