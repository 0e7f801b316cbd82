package suitecheck

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/probelabs/suitecheck/suite"
	"github.com/probelabs/suitecheck/types"
)

// Reporter renders a finished run on stdout, either as a table for humans
// or as a JSON blob for tooling.
type Reporter struct {
	JSON bool
}

// runSummary is the JSON shape written to stdout and to summary.json.
type runSummary struct {
	RunID        string             `json:"run_id"`
	Passed       bool               `json:"passed"`
	Stopped      bool               `json:"stopped,omitempty"`
	TestCount    int                `json:"test_count"`
	SkippedCount int                `json:"skipped_count"`
	TotalMs      float64            `json:"total_ms"`
	AvgMs        float64            `json:"avg_ms"`
	MaxMs        float64            `json:"max_ms"`
	MaxTest      string             `json:"max_test,omitempty"`
	Coverage     map[string]float64 `json:"coverage,omitempty"`
	Suites       []suite.Result     `json:"suites"`
	Violations   []types.Violation  `json:"violations,omitempty"`
}

func newRunSummary(runID string, results *suite.Results, violations []types.Violation) runSummary {
	agg := results.Aggregated()
	return runSummary{
		RunID:        runID,
		Passed:       results.Passed && !types.HasErrors(violations),
		Stopped:      results.Stopped,
		TestCount:    agg.TestCount,
		SkippedCount: agg.SkippedCount,
		TotalMs:      agg.TotalMs,
		AvgMs:        agg.AvgMs,
		MaxMs:        agg.MaxMs,
		MaxTest:      agg.MaxTest,
		Coverage:     results.Coverage.Percentages(),
		Suites:       results.Suites,
		Violations:   violations,
	}
}

// Print writes the run results to stdout.
func (r *Reporter) Print(project string, results *suite.Results, violations []types.Violation) error {
	if r.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(newRunSummary("", results, violations))
	}
	r.printResultsTable(project, results)
	r.printCoverage(results)
	r.printViolations(violations)
	return nil
}

func (r *Reporter) printResultsTable(project string, results *suite.Results) {
	agg := results.Aggregated()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	title := "Test Results"
	if project != "" {
		title = fmt.Sprintf("Test Results: %s", project)
	}
	t.SetTitle(fmt.Sprintf("%s (%s)", title, formatDuration(time.Duration(agg.TotalMs)*time.Millisecond)))

	t.AppendHeader(table.Row{
		"Suite", "Runner", "Duration", "Tests", "Skipped", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 30, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, sr := range results.Suites {
		t.AppendRow(table.Row{
			sr.Name,
			sr.Runner,
			formatDuration(time.Duration(sr.TotalMs) * time.Millisecond),
			sr.TestCount,
			sr.SkippedCount,
			statusString(sr.Status),
			extractKeyErrorMessage(sr.Error),
		})
	}

	t.AppendFooter(table.Row{
		"TOTAL", "",
		formatDuration(time.Duration(agg.TotalMs) * time.Millisecond),
		agg.TestCount,
		agg.SkippedCount,
		overallStatus(results),
		"",
	})
	t.Render()

	if results.Stopped {
		fmt.Println("Stopped at first failure; remaining suites did not run.")
	}
}

func (r *Reporter) printCoverage(results *suite.Results) {
	percentages := results.Coverage.Percentages()
	if len(percentages) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Coverage")
	t.AppendHeader(table.Row{"Language", "Lines"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Lines", Align: text.AlignRight},
	})
	for lang, pct := range percentages {
		t.AppendRow(table.Row{lang, fmt.Sprintf("%.1f%%", pct)})
	}
	t.SortBy([]table.SortBy{{Name: "Language", Mode: table.Asc}})
	t.Render()
}

func (r *Reporter) printViolations(violations []types.Violation) {
	if len(violations) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Violations")
	t.AppendHeader(table.Row{"Level", "Type", "Target", "Advice"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Advice", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, v := range violations {
		t.AppendRow(table.Row{string(v.Level), string(v.Kind), v.Target, v.Advice})
	}
	t.Render()
}

// statusString returns a marked string representing the suite outcome.
func statusString(s suite.Status) string {
	switch s {
	case suite.StatusPassed:
		return "✓ pass"
	case suite.StatusSkipped:
		return "- skip"
	case suite.StatusTimedOut:
		return "✗ timeout"
	default:
		return "✗ fail"
	}
}

func overallStatus(results *suite.Results) string {
	if results.Passed {
		return "✓ pass"
	}
	return "✗ fail"
}

// extractKeyErrorMessage trims a multi-line error down to its first
// meaningful line so the table stays readable. Full detail lives in the
// per-suite log file.
func extractKeyErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return msg
}

// renderSuiteLog produces the per-suite artifact text: one line per test
// plus the failure detail.
func renderSuiteLog(sr suite.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "suite: %s\nrunner: %s\nstatus: %s\n", sr.Name, sr.Runner, sr.Status)
	if sr.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", sr.Error)
	}
	if len(sr.Tests) > 0 {
		b.WriteString("\n")
		for _, tc := range sr.Tests {
			mark := "PASS"
			switch {
			case tc.Skipped:
				mark = "SKIP"
			case !tc.Passed:
				mark = "FAIL"
			}
			if tc.Duration > 0 {
				fmt.Fprintf(&b, "%s %s (%s)\n", mark, tc.Name, formatDuration(tc.Duration))
			} else {
				fmt.Fprintf(&b, "%s %s\n", mark, tc.Name)
			}
		}
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
