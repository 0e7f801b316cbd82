package coverage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/probelabs/suitecheck/executor"
)

// CollectShell wraps the suite's test command in kcov to measure line
// coverage of the resolved shell scripts, restricted to their containing
// directories. Returns an unavailable result when kcov is missing or no
// scripts were resolved.
func CollectShell(ctx context.Context, scripts, testCommand []string, root string, available bool) *Result {
	if !available || len(scripts) == 0 || len(testCommand) == 0 {
		return Unavailable()
	}

	start := time.Now()
	outputDir := filepath.Join(root, "target", "kcov")
	_ = os.RemoveAll(outputDir)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Failed(time.Since(start), "failed to create kcov dir: "+err.Error())
	}

	args := []string{"--include-path", includePaths(scripts), outputDir}
	args = append(args, testCommand...)
	out, err := executor.Run(ctx, executor.Command{Name: "kcov", Args: args, Dir: root})
	if err != nil {
		return Failed(time.Since(start), err.Error())
	}
	if !out.Success() {
		msg := executor.TruncateLines(string(out.Stderr), 10)
		return Failed(out.Duration, "kcov failed:\n"+msg)
	}

	xmlPath := findCoberturaXML(outputDir)
	if xmlPath == "" {
		return Failed(out.Duration, "kcov output not found")
	}
	content, readErr := os.ReadFile(xmlPath)
	if readErr != nil {
		return Failed(out.Duration, "failed to read kcov output: "+readErr.Error())
	}
	result := ParseCobertura(string(content), out.Duration, root)
	_ = os.RemoveAll(outputDir)
	return result
}

// includePaths joins the deduplicated parent directories of the scripts
// into kcov's comma-separated --include-path argument.
func includePaths(scripts []string) string {
	seen := map[string]bool{}
	var dirs []string
	for _, s := range scripts {
		dir := filepath.Dir(s)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	joined := ""
	for i, d := range dirs {
		if i > 0 {
			joined += ","
		}
		joined += d
	}
	return joined
}

// findCoberturaXML locates cobertura.xml in the kcov output directory.
// kcov nests it under a subdirectory named after the wrapped executable.
func findCoberturaXML(outputDir string) string {
	direct := filepath.Join(outputDir, "cobertura.xml")
	if _, err := os.Stat(direct); err == nil {
		return direct
	}
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		nested := filepath.Join(outputDir, entry.Name(), "cobertura.xml")
		if _, err := os.Stat(nested); err == nil {
			return nested
		}
	}
	return ""
}
