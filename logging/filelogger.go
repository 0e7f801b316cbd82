// Package logging persists per-run artifacts: suite output and the run
// summary, under a per-run directory.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
)

// FileLogger writes run artifacts under <baseDir>/<runID>/.
type FileLogger struct {
	baseDir string
	runID   string
	mu      sync.Mutex
}

// NewFileLogger creates the run directory and returns a logger for it.
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &FileLogger{baseDir: baseDir, runID: runID}, nil
}

// RunID returns the run identifier this logger writes under.
func (l *FileLogger) RunID() string { return l.runID }

// RunDir returns the directory artifacts are written to.
func (l *FileLogger) RunDir() string {
	return filepath.Join(l.baseDir, l.runID)
}

// SaveSuiteOutput writes a suite's captured output, ANSI-stripped, to
// <runDir>/<suite>.log.
func (l *FileLogger) SaveSuiteOutput(suiteName, output string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	path := filepath.Join(l.RunDir(), safeFilename(suiteName)+".log")
	return os.WriteFile(path, []byte(stripansi.Strip(output)), 0o644)
}

// SaveSummary writes the machine-readable run summary as summary.json.
func (l *FileLogger) SaveSummary(summary any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	path := filepath.Join(l.RunDir(), "summary.json")
	return os.WriteFile(path, data, 0o644)
}

// safeFilename replaces path-hostile characters in a suite name.
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(s)
}
