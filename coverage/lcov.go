package coverage

import (
	"strconv"
	"strings"
	"time"
)

// ParseLCOV parses the LCOV line-coverage interchange format produced by
// the JS test runners' coverage reporters.
//
// Only the records needed for line coverage are consumed: SF (source
// file), LH (lines hit), LF (lines found) and end_of_record. A file
// section without LF, or one never closed by end_of_record, contributes
// nothing. Vendored dependencies under node_modules are excluded.
func ParseLCOV(content string, duration time.Duration) *Result {
	files := map[string]float64{}
	packageStats := map[string][]float64{}
	var totalHit, totalFound int64

	var currentFile string
	var linesHit, linesFound int64
	var haveFound bool

	reset := func() {
		currentFile = ""
		linesHit, linesFound = 0, 0
		haveFound = false
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SF:"):
			reset()
			currentFile = strings.TrimPrefix(line, "SF:")
		case strings.HasPrefix(line, "LH:"):
			if v, err := strconv.ParseInt(strings.TrimPrefix(line, "LH:"), 10, 64); err == nil {
				linesHit = v
			}
		case strings.HasPrefix(line, "LF:"):
			if v, err := strconv.ParseInt(strings.TrimPrefix(line, "LF:"), 10, 64); err == nil {
				linesFound = v
				haveFound = true
			}
		case line == "end_of_record":
			if currentFile != "" && haveFound && linesFound > 0 && includeFile(currentFile) {
				path := NormalizeJSPath(currentFile)
				if path != "" {
					pct := float64(linesHit) / float64(linesFound) * 100.0
					files[path] = pct
					pkg := ExtractJSPackage(path)
					packageStats[pkg] = append(packageStats[pkg], pct)
					totalHit += linesHit
					totalFound += linesFound
				}
			}
			reset()
		}
	}

	result := &Result{
		Success:  true,
		Duration: duration,
		Files:    files,
		Packages: map[string]float64{},
	}
	for pkg, pcts := range packageStats {
		var sum float64
		for _, p := range pcts {
			sum += p
		}
		result.Packages[pkg] = sum / float64(len(pcts))
	}
	if totalFound > 0 {
		pct := float64(totalHit) / float64(totalFound) * 100.0
		result.LineCoverage = &pct
	}
	return result
}

func includeFile(path string) bool {
	return !strings.Contains(path, "node_modules")
}

// NormalizeJSPath strips the absolute workspace prefix from a reported
// path, keeping from the first recognizable project marker. Paths inside
// node_modules normalize to the empty string.
func NormalizeJSPath(path string) string {
	if strings.Contains(path, "node_modules") {
		return ""
	}
	for _, marker := range []string{"packages/", "apps/", "libs/", "src/", "lib/", "tests/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			return path[idx:]
		}
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// ExtractJSPackage determines the monorepo package a normalized path
// belongs to: the first two segments for packages/, apps/ and libs/
// layouts, otherwise "root".
func ExtractJSPackage(path string) string {
	for _, prefix := range []string{"packages/", "apps/", "libs/"} {
		if strings.HasPrefix(path, prefix) {
			rest := path[len(prefix):]
			if idx := strings.Index(rest, "/"); idx >= 0 {
				return prefix + rest[:idx]
			}
		}
	}
	return "root"
}
