package suite

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/runner"
	"github.com/probelabs/suitecheck/types"
)

// Orchestrator schedules configured suites across runners. In CI mode
// every suite runs to completion, concurrently when more than one is
// active, so metrics stay complete. Outside CI suites run sequentially
// and execution stops at the first failure.
type Orchestrator struct {
	log     logrus.FieldLogger
	tracer  trace.Tracer
	lookup  func(name string) (runner.Runner, bool)
	workers int
}

// Config wires an Orchestrator's collaborators. Zero values get sensible
// defaults; Lookup exists so tests can inject runners.
type Config struct {
	Log     logrus.FieldLogger
	Lookup  func(name string) (runner.Runner, bool)
	Workers int
}

// NewOrchestrator builds an Orchestrator from config.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Lookup == nil {
		cfg.Lookup = runner.Get
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Orchestrator{
		log:     cfg.Log,
		tracer:  otel.Tracer("suite orchestrator"),
		lookup:  cfg.Lookup,
		workers: cfg.Workers,
	}
}

// FilterForMode drops ci-only suites when not running in CI mode.
func FilterForMode(suites []types.SuiteConfig, ciMode bool) []types.SuiteConfig {
	var active []types.SuiteConfig
	for _, s := range suites {
		if ciMode || !s.CI {
			active = append(active, s)
		}
	}
	return active
}

// Run executes the given suites under the scheduling policy selected by
// rctx.CIMode and returns per-suite results in input order.
func (o *Orchestrator) Run(ctx context.Context, suites []types.SuiteConfig, rctx *runner.Context) *Results {
	active := FilterForMode(suites, rctx.CIMode)
	results := &Results{Passed: true, Coverage: coverage.Aggregate{}}
	if len(active) == 0 {
		return results
	}

	var suiteResults []Result
	if rctx.CIMode && len(active) > 1 {
		suiteResults = o.runParallel(ctx, active, rctx)
	} else {
		var stopped bool
		suiteResults, stopped = o.runSequential(ctx, active, rctx)
		results.Stopped = stopped
	}

	for _, sr := range suiteResults {
		if !sr.Passed && !sr.Skipped {
			results.Passed = false
		}
		for lang, cov := range sr.Coverage {
			results.Coverage.Fold(lang, cov)
		}
	}
	results.Suites = suiteResults
	return results
}

// runSequential executes suites one at a time, stopping at the first
// failure since later suites cannot change the fail signal.
func (o *Orchestrator) runSequential(ctx context.Context, suites []types.SuiteConfig, rctx *runner.Context) ([]Result, bool) {
	var results []Result
	for i, cfg := range suites {
		result := o.runOne(ctx, cfg, rctx)
		results = append(results, result)
		if !result.Passed && !result.Skipped {
			return results, i < len(suites)-1
		}
	}
	return results, false
}

// runParallel executes all suites through a bounded worker pool and
// returns results in input order.
func (o *Orchestrator) runParallel(ctx context.Context, suites []types.SuiteConfig, rctx *runner.Context) []Result {
	type item struct {
		index int
		cfg   types.SuiteConfig
	}
	workers := o.workers
	if workers > len(suites) {
		workers = len(suites)
	}
	o.log.WithFields(logrus.Fields{
		"suites":  len(suites),
		"workers": workers,
	}).Info("running suites in parallel")

	workChan := make(chan item, len(suites))
	results := make([]Result, len(suites))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range workChan {
				results[it.index] = o.runOne(ctx, it.cfg, rctx)
			}
		}()
	}
	for i, cfg := range suites {
		workChan <- item{index: i, cfg: cfg}
	}
	close(workChan)
	wg.Wait()
	return results
}

// runOne takes a single suite through its lifecycle.
func (o *Orchestrator) runOne(ctx context.Context, cfg types.SuiteConfig, rctx *runner.Context) Result {
	name := cfg.DisplayName()
	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("suite %s", name))
	defer span.End()

	log := o.log.WithFields(logrus.Fields{"suite": name, "runner": cfg.Runner})
	result := Result{Name: name, Runner: cfg.Runner, Status: StatusPending}

	r, ok := o.lookup(cfg.Runner)
	if !ok {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("unknown runner: %s", cfg.Runner)
		log.Error(result.Error)
		return result
	}
	if !r.Available(rctx) {
		result.Status = StatusSkipped
		result.Skipped = true
		result.Error = fmt.Sprintf("%s not available in this environment", cfg.Runner)
		log.WithField("reason", result.Error).Info("suite skipped")
		return result
	}

	result.Status = StatusRunning
	log.Info("suite started")
	run := r.Run(ctx, cfg, rctx)

	result.Passed = run.Passed
	result.Skipped = run.Skipped
	result.Error = run.Error
	result.Tests = run.Tests
	result.Coverage = run.Coverage
	result.TestCount = run.TestCount()
	result.SkippedCount = run.SkippedCount()
	result.TotalMs = float64(run.TotalTime) / float64(time.Millisecond)
	result.AvgMs = float64(run.AvgDuration()) / float64(time.Millisecond)
	if slowest := run.SlowestTest(); slowest != nil {
		result.MaxMs = float64(slowest.Duration) / float64(time.Millisecond)
		result.MaxTest = slowest.Name
	}

	switch {
	case run.Skipped:
		result.Status = StatusSkipped
	case run.Passed:
		result.Status = StatusPassed
		log.WithField("tests", result.TestCount).Info("suite passed")
	case isTimeout(run.Error):
		result.Status = StatusTimedOut
		log.WithField("error", run.Error).Error("suite timed out")
	default:
		result.Status = StatusFailed
		log.WithField("error", run.Error).Error("suite failed")
	}
	return result
}

func isTimeout(msg string) bool {
	return strings.HasPrefix(msg, "timed out")
}
