package suitecheck

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/probelabs/suitecheck/flags"
)

// Config holds the application configuration
type Config struct {
	ProjectDir      string        // Absolute path to the project root
	ConfigFile      string        // Path to the suite configuration file
	CIMode          bool          // Full run: all suites, parallel, no early stop
	CollectCoverage bool          // Collect line coverage where tools allow
	DefaultTimeout  time.Duration // Default per-suite timeout, zero means none
	LogDir          string        // Directory to store run artifacts
	JSONOutput      bool          // Emit the run summary as JSON instead of a table
	Log             logrus.FieldLogger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log logrus.FieldLogger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	projectDir, err := filepath.Abs(ctx.String(flags.ProjectDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for project dir '%s': %w", ctx.String(flags.ProjectDir.Name), err)
	}

	configFile := ctx.String(flags.Config.Name)
	if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(projectDir, configFile)
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", ctx.String(flags.LogDir.Name), err)
	}

	return &Config{
		ProjectDir:      projectDir,
		ConfigFile:      configFile,
		CIMode:          ctx.Bool(flags.CI.Name),
		CollectCoverage: ctx.Bool(flags.Coverage.Name),
		DefaultTimeout:  ctx.Duration(flags.Timeout.Name),
		LogDir:          logDir,
		JSONOutput:      ctx.Bool(flags.JSONOutput.Name),
		Log:             log,
	}, nil
}
