package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "SUITECHECK"

func prefixEnvVars(name string) []string {
	return []string{fmt.Sprintf("%s_%s", EnvVarPrefix, name)}
}

var (
	ProjectDir = &cli.StringFlag{
		Name:    "project-dir",
		Value:   ".",
		EnvVars: prefixEnvVars("PROJECT_DIR"),
		Usage:   "Path to the project root to run suites in",
	}
	Config = &cli.StringFlag{
		Name:    "config",
		Value:   "suitecheck.yaml",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to the suite config file (eg. 'suitecheck.yaml')",
	}
	CI = &cli.BoolFlag{
		Name:    "ci",
		Value:   false,
		EnvVars: prefixEnvVars("CI"),
		Usage:   "Full run: include ci-only suites, run everything to completion in parallel",
	}
	Coverage = &cli.BoolFlag{
		Name:    "coverage",
		Value:   false,
		EnvVars: prefixEnvVars("COVERAGE"),
		Usage:   "Collect line coverage (best-effort, skipped when tools are missing)",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   0,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Default per-suite timeout (e.g. '5m'). Set to 0 or omit for no timeout.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory for per-run artifacts",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
	JSONOutput = &cli.BoolFlag{
		Name:    "json",
		Value:   false,
		EnvVars: prefixEnvVars("JSON"),
		Usage:   "Emit the run summary as JSON on stdout",
	}
)

var Flags = []cli.Flag{
	ProjectDir,
	Config,
	CI,
	Coverage,
	Timeout,
	LogDir,
	LogLevel,
	JSONOutput,
}

// CheckRequired validates flag values that cli cannot express.
func CheckRequired(ctx *cli.Context) error {
	if ctx.Duration(Timeout.Name) < 0 {
		return fmt.Errorf("flag %s must not be negative", Timeout.Name)
	}
	if ctx.String(Config.Name) == "" {
		return fmt.Errorf("flag %s is required", Config.Name)
	}
	return nil
}
