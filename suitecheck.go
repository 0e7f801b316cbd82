// Package suitecheck wires configuration, suite orchestration, threshold
// checking and reporting into a single run of the test harness.
package suitecheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/probelabs/suitecheck/logging"
	"github.com/probelabs/suitecheck/metrics"
	"github.com/probelabs/suitecheck/registry"
	"github.com/probelabs/suitecheck/runner"
	"github.com/probelabs/suitecheck/suite"
	"github.com/probelabs/suitecheck/thresholds"
	"github.com/probelabs/suitecheck/types"
)

// Engine runs one full check: load config, probe tools, execute suites,
// evaluate thresholds, report.
type Engine struct {
	config       *Config
	registry     *registry.Registry
	orchestrator *suite.Orchestrator
	fileLogger   *logging.FileLogger
	runID        string
}

func New(config *Config) (*Engine, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		ConfigFile:     config.ConfigFile,
		DefaultTimeout: config.DefaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	runID := uuid.New().String()
	fileLogger, err := logging.NewFileLogger(config.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	orch := suite.NewOrchestrator(suite.Config{Log: config.Log})

	config.Log.WithField("run_id", runID).Debug("created registry and orchestrator")

	return &Engine{
		config:       config,
		registry:     reg,
		orchestrator: orch,
		fileLogger:   fileLogger,
		runID:        runID,
	}, nil
}

// RunID returns the unique identifier of this run.
func (e *Engine) RunID() string { return e.runID }

// Run executes every configured suite and evaluates thresholds. It returns
// a TestFailureError when suites fail or error-level thresholds are
// violated, and a plain error for operational problems.
func (e *Engine) Run(ctx context.Context) error {
	log := e.config.Log

	rctx := &runner.Context{
		Root:            e.config.ProjectDir,
		CIMode:          e.config.CIMode,
		CollectCoverage: e.config.CollectCoverage,
		Meta:            e.registry.Metadata(e.config.ProjectDir),
		Tools:           runner.ProbeToolchain(),
		Log:             log,
	}

	suites := e.registry.Suites()
	log.WithFields(logrus.Fields{
		"run_id": e.runID,
		"suites": len(suites),
		"ci":     e.config.CIMode,
	}).Info("starting test run")

	results := e.orchestrator.Run(ctx, suites, rctx)
	violations := thresholds.CheckAll(e.registry.Thresholds(), suites, results)

	e.record(results, violations)
	e.saveArtifacts(results, violations)

	reporter := &Reporter{JSON: e.config.JSONOutput}
	if err := reporter.Print(e.registry.ProjectName(), results, violations); err != nil {
		metrics.RecordError("render_results")
		log.WithError(err).Warn("failed to render results")
	}
	log.WithField("artifacts", e.fileLogger.RunDir()).Info("run artifacts saved")

	if !results.Passed {
		return NewTestFailureError("one or more test suites failed")
	}
	if types.HasErrors(violations) {
		return NewTestFailureError("one or more thresholds exceeded")
	}
	return nil
}

func (e *Engine) record(results *suite.Results, violations []types.Violation) {
	project := e.registry.ProjectName()
	for _, sr := range results.Suites {
		metrics.RecordSuite(project, e.runID, sr)
	}
	metrics.RecordCoverage(project, e.runID, results.Coverage.Percentages())
	for _, v := range violations {
		metrics.RecordViolation(project, e.runID, string(v.Kind))
	}
}

func (e *Engine) saveArtifacts(results *suite.Results, violations []types.Violation) {
	log := e.config.Log
	for _, sr := range results.Suites {
		if err := e.fileLogger.SaveSuiteOutput(sr.Name, renderSuiteLog(sr)); err != nil {
			metrics.RecordError("save_suite_log")
			log.WithError(err).WithField("suite", sr.Name).Warn("failed to save suite log")
		}
	}
	if err := e.fileLogger.SaveSummary(newRunSummary(e.runID, results, violations)); err != nil {
		metrics.RecordError("save_summary")
		log.WithError(err).Warn("failed to save run summary")
	}
}
