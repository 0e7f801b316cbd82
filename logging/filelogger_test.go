package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoggerSavesArtifacts(t *testing.T) {
	base := t.TempDir()
	l, err := NewFileLogger(base, "run-123")
	require.NoError(t, err)
	assert.Equal(t, "run-123", l.RunID())

	require.NoError(t, l.SaveSuiteOutput("unit tests", "\x1b[32mok\x1b[0m all passed\n"))
	content, err := os.ReadFile(filepath.Join(base, "run-123", "unit_tests.log"))
	require.NoError(t, err)
	assert.Equal(t, "ok all passed\n", string(content))

	require.NoError(t, l.SaveSummary(map[string]any{"passed": true}))
	data, err := os.ReadFile(filepath.Join(base, "run-123", "summary.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"passed": true`)
}

func TestNewFileLoggerRequiresRunID(t *testing.T) {
	_, err := NewFileLogger(t.TempDir(), "")
	require.Error(t, err)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", safeFilename("a/b:c"))
}
