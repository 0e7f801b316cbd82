package suitecheck

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "suitecheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func testConfig(t *testing.T, dir, configFile string) *Config {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return &Config{
		ProjectDir: dir,
		ConfigFile: configFile,
		LogDir:     filepath.Join(t.TempDir(), "logs"),
		Log:        log,
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNew_MissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, err := New(testConfig(t, dir, filepath.Join(dir, "nope.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create registry")
}

func TestEngineRun_PassingCustomSuite(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test config uses sh commands")
	}
	dir := t.TempDir()
	cfgFile := writeConfig(t, dir, `
project:
  name: demo
tests:
  suites:
    - runner: custom
      name: smoke
      command: "exit 0"
`)

	engine, err := New(testConfig(t, dir, cfgFile))
	require.NoError(t, err)
	require.NotEmpty(t, engine.RunID())

	require.NoError(t, engine.Run(context.Background()))

	// Artifacts land under <logdir>/<runID>.
	_, err = os.Stat(filepath.Join(engine.fileLogger.RunDir(), "summary.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(engine.fileLogger.RunDir(), "smoke.log"))
	require.NoError(t, err)
}

func TestEngineRun_FailingSuiteReturnsTestFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test config uses sh commands")
	}
	dir := t.TempDir()
	cfgFile := writeConfig(t, dir, `
project:
  name: demo
tests:
  suites:
    - runner: custom
      name: smoke
      command: "exit 3"
`)

	engine, err := New(testConfig(t, dir, cfgFile))
	require.NoError(t, err)

	err = engine.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
}

func TestEngineRun_DistinctRunIDs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test config uses sh commands")
	}
	dir := t.TempDir()
	cfgFile := writeConfig(t, dir, `
project:
  name: demo
tests:
  suites:
    - runner: custom
      command: "exit 0"
`)

	first, err := New(testConfig(t, dir, cfgFile))
	require.NoError(t, err)
	second, err := New(testConfig(t, dir, cfgFile))
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID(), second.RunID())
}

func TestEngineRun_ThresholdViolationFailsRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test config uses sh commands")
	}
	dir := t.TempDir()
	// A passing suite that still violates max_total once any time at all
	// has elapsed.
	cfgFile := writeConfig(t, dir, `
project:
  name: demo
tests:
  time:
    check: error
  suites:
    - runner: custom
      name: slowpoke
      command: "sleep 0.05"
      max_total: 1ms
`)

	engine, err := New(testConfig(t, dir, cfgFile))
	require.NoError(t, err)

	err = engine.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.Contains(t, err.Error(), "thresholds")
}
