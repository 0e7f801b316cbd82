package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	suitecheck "github.com/probelabs/suitecheck"
	"github.com/probelabs/suitecheck/exitcodes"
	"github.com/probelabs/suitecheck/flags"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "suitecheck"
	app.Usage = "Test suite execution and coverage checker"
	app.Description = "suitecheck runs a project's configured test suites, collects line coverage and enforces timing and coverage thresholds"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if suitecheck.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if suitecheck.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}

func run(ctx *cli.Context) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return suitecheck.NewRuntimeError(fmt.Errorf("invalid log level: %w", err))
	}
	log.SetLevel(level)

	cfg, err := suitecheck.NewConfig(ctx, log)
	if err != nil {
		return suitecheck.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	engine, err := suitecheck.New(cfg)
	if err != nil {
		return suitecheck.NewRuntimeError(fmt.Errorf("failed to create engine: %w", err))
	}

	return engine.Run(ctx.Context)
}
