package coverage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/probelabs/suitecheck/executor"
)

// CollectGo runs `go test -coverprofile` under root and parses the
// resulting profile. Returns an unavailable result when the go toolchain
// is missing.
func CollectGo(ctx context.Context, root, testPath string, available bool) *Result {
	if !available {
		return Unavailable()
	}
	if testPath == "" {
		testPath = "./..."
	}

	start := time.Now()
	profile := filepath.Join(root, ".suitecheck-coverage.out")
	defer os.Remove(profile)

	out, err := executor.Run(ctx, executor.Command{
		Name: "go",
		Args: []string{"test", "-coverprofile", profile, testPath},
		Dir:  root,
	})
	if err != nil {
		return Failed(time.Since(start), err.Error())
	}

	content, readErr := os.ReadFile(profile)
	if readErr != nil {
		// When tests fail no profile is written; surface the test output.
		if !out.Success() {
			msg := executor.TruncateLines(string(out.Stderr), 10)
			return Failed(out.Duration, "go test failed:\n"+msg)
		}
		return Failed(out.Duration, "failed to read coverage profile: "+readErr.Error())
	}
	return ParseGoProfile(string(content), out.Duration)
}

// ParseGoProfile parses Go's cover profile format:
//
//	mode: set
//	example.com/pkg/math/math.go:5.14,7.2 1 1
//
// Each line is <file>:<start>,<end> <numStatements> <count>. Per-file
// coverage is covered statements over total statements.
func ParseGoProfile(content string, duration time.Duration) *Result {
	type stats struct{ covered, total int64 }
	fileStats := map[string]*stats{}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || (i == 0 && strings.HasPrefix(line, "mode:")) {
			continue
		}
		file, statements, count, ok := parseProfileLine(line)
		if !ok {
			continue
		}
		s := fileStats[file]
		if s == nil {
			s = &stats{}
			fileStats[file] = s
		}
		s.total += statements
		if count > 0 {
			s.covered += statements
		}
	}

	result := &Result{
		Success:  true,
		Duration: duration,
		Files:    map[string]float64{},
		Packages: map[string]float64{},
	}
	if len(fileStats) == 0 {
		return result
	}

	packageStats := map[string]*stats{}
	var totalCovered, totalStatements int64
	for path, s := range fileStats {
		if s.total == 0 {
			continue
		}
		result.Files[normalizeGoPath(path)] = float64(s.covered) / float64(s.total) * 100.0

		pkg := extractGoPackage(path)
		ps := packageStats[pkg]
		if ps == nil {
			ps = &stats{}
			packageStats[pkg] = ps
		}
		ps.covered += s.covered
		ps.total += s.total

		totalCovered += s.covered
		totalStatements += s.total
	}
	for pkg, s := range packageStats {
		if s.total > 0 {
			result.Packages[pkg] = float64(s.covered) / float64(s.total) * 100.0
		}
	}
	if totalStatements > 0 {
		pct := float64(totalCovered) / float64(totalStatements) * 100.0
		result.LineCoverage = &pct
	}
	return result
}

func parseProfileLine(line string) (file string, statements, count int64, ok bool) {
	// File paths may contain colons on Windows; take the last one.
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		return "", 0, 0, false
	}
	fields := strings.Fields(line[colon+1:])
	if len(fields) != 3 {
		return "", 0, 0, false
	}
	statements, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	count, err = strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	return line[:colon], statements, count, true
}

// normalizeGoPath strips the module path prefix, keeping from the first
// conventional layout marker.
func normalizeGoPath(path string) string {
	for _, marker := range []string{"pkg/", "internal/", "cmd/", "src/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			return path[idx:]
		}
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func extractGoPackage(path string) string {
	for _, marker := range []string{"pkg/", "internal/", "cmd/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			pkgPath := path[idx:]
			if slash := strings.LastIndex(pkgPath, "/"); slash >= 0 {
				return pkgPath[:slash]
			}
		}
	}
	return "root"
}
