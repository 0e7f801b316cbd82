package coverage

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"
)

// coberturaReport is the subset of the Cobertura XML schema needed for
// line coverage.
type coberturaReport struct {
	XMLName  xml.Name `xml:"coverage"`
	LineRate string   `xml:"line-rate,attr"`
	Packages []struct {
		Classes []struct {
			Filename string `xml:"filename,attr"`
			LineRate string `xml:"line-rate,attr"`
		} `xml:"classes>class"`
	} `xml:"packages>package"`
}

// ParseCobertura parses a Cobertura XML report, as emitted by kcov. The
// root directory is stripped from reported file paths when present.
func ParseCobertura(content string, duration time.Duration, root string) *Result {
	var report coberturaReport
	if err := xml.Unmarshal([]byte(content), &report); err != nil {
		return Failed(duration, "failed to parse coverage XML: "+err.Error())
	}

	files := map[string]float64{}
	for _, pkg := range report.Packages {
		for _, class := range pkg.Classes {
			rate, err := strconv.ParseFloat(class.LineRate, 64)
			if err != nil || class.Filename == "" {
				continue
			}
			files[normalizeScriptPath(class.Filename, root)] = rate * 100.0
		}
	}

	result := &Result{
		Success:  true,
		Duration: duration,
		Files:    files,
		Packages: map[string]float64{},
	}
	if rate, err := strconv.ParseFloat(report.LineRate, 64); err == nil {
		pct := rate * 100.0
		result.LineCoverage = &pct
	} else if len(files) > 0 {
		mean := meanOf(files)
		result.LineCoverage = &mean
	}
	return result
}

func normalizeScriptPath(path, root string) string {
	if root != "" {
		prefix := strings.TrimSuffix(root, "/") + "/"
		if strings.HasPrefix(path, prefix) {
			return path[len(prefix):]
		}
	}
	for _, marker := range []string{"scripts/", "src/", "bin/", "lib/"} {
		if idx := strings.Index(path, marker); idx >= 0 {
			return path[idx:]
		}
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
