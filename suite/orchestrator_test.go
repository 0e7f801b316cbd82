package suite

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelabs/suitecheck/coverage"
	"github.com/probelabs/suitecheck/runner"
	"github.com/probelabs/suitecheck/types"
)

// fakeRunner executes no real tool and returns a canned result.
type fakeRunner struct {
	name      string
	available bool
	result    *runner.TestRunResult
	calls     *atomic.Int32
}

func (f *fakeRunner) Name() string                    { return f.name }
func (f *fakeRunner) Available(*runner.Context) bool  { return f.available }
func (f *fakeRunner) Run(context.Context, types.SuiteConfig, *runner.Context) *runner.TestRunResult {
	if f.calls != nil {
		f.calls.Add(1)
	}
	return f.result
}

func newOrchestrator(t *testing.T, runners ...*fakeRunner) *Orchestrator {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewOrchestrator(Config{
		Log: log,
		Lookup: func(name string) (runner.Runner, bool) {
			for _, r := range runners {
				if r.name == name {
					return r, true
				}
			}
			return nil, false
		},
	})
}

func rctx(ci bool) *runner.Context {
	return &runner.Context{Root: ".", CIMode: ci, Tools: &runner.Toolchain{}}
}

func suiteCfg(name, runnerName string) types.SuiteConfig {
	return types.SuiteConfig{Name: name, Runner: runnerName}
}

func passing(ms int) *runner.TestRunResult {
	return runner.Passed(time.Duration(ms) * time.Millisecond).WithTests([]types.TestResult{
		types.PassedTest("t1", time.Duration(ms)*time.Millisecond),
	})
}

func TestRunAllPassing(t *testing.T) {
	o := newOrchestrator(t, &fakeRunner{name: "fast", available: true, result: passing(10)})
	results := o.Run(context.Background(), []types.SuiteConfig{suiteCfg("a", "fast")}, rctx(false))

	assert.True(t, results.Passed)
	require.Len(t, results.Suites, 1)
	assert.Equal(t, StatusPassed, results.Suites[0].Status)
	assert.True(t, results.Suites[0].Status.Terminal())
}

func TestSequentialStopsAtFirstFailure(t *testing.T) {
	var failCalls, laterCalls atomic.Int32
	failing := &fakeRunner{
		name: "failing", available: true, calls: &failCalls,
		result: runner.FailedRun(time.Millisecond, "tests failed"),
	}
	later := &fakeRunner{name: "later", available: true, calls: &laterCalls, result: passing(5)}

	o := newOrchestrator(t, failing, later)
	results := o.Run(context.Background(), []types.SuiteConfig{
		suiteCfg("first", "failing"),
		suiteCfg("second", "later"),
	}, rctx(false))

	assert.False(t, results.Passed)
	assert.True(t, results.Stopped)
	assert.Len(t, results.Suites, 1)
	assert.Equal(t, int32(0), laterCalls.Load())
}

func TestCIModeRunsAllSuites(t *testing.T) {
	var failCalls, laterCalls atomic.Int32
	failing := &fakeRunner{
		name: "failing", available: true, calls: &failCalls,
		result: runner.FailedRun(time.Millisecond, "tests failed"),
	}
	later := &fakeRunner{name: "later", available: true, calls: &laterCalls, result: passing(5)}

	o := newOrchestrator(t, failing, later)
	results := o.Run(context.Background(), []types.SuiteConfig{
		suiteCfg("first", "failing"),
		suiteCfg("second", "later"),
	}, rctx(true))

	assert.False(t, results.Passed)
	assert.False(t, results.Stopped)
	require.Len(t, results.Suites, 2)
	assert.Equal(t, int32(1), laterCalls.Load())
	// Results come back in input order despite parallel execution.
	assert.Equal(t, []string{"first", "second"}, results.SuiteNames())
}

func TestUnavailableRunnerSkipsSuite(t *testing.T) {
	missing := &fakeRunner{name: "missing", available: false}
	ok := &fakeRunner{name: "ok", available: true, result: passing(5)}

	o := newOrchestrator(t, missing, ok)
	results := o.Run(context.Background(), []types.SuiteConfig{
		suiteCfg("skipped-one", "missing"),
		suiteCfg("real-one", "ok"),
	}, rctx(false))

	// A skipped suite never affects overall pass/fail.
	assert.True(t, results.Passed)
	require.Len(t, results.Suites, 2)
	assert.Equal(t, StatusSkipped, results.Suites[0].Status)
	assert.True(t, results.Suites[0].Skipped)
}

func TestUnknownRunnerFailsSuite(t *testing.T) {
	o := newOrchestrator(t)
	results := o.Run(context.Background(), []types.SuiteConfig{suiteCfg("x", "nope")}, rctx(false))

	assert.False(t, results.Passed)
	assert.Equal(t, StatusFailed, results.Suites[0].Status)
	assert.Contains(t, results.Suites[0].Error, "unknown runner")
}

func TestTimedOutStatus(t *testing.T) {
	slow := &fakeRunner{
		name: "slow", available: true,
		result: runner.FailedRun(time.Second, "timed out after 1s - check for slow or hanging tests"),
	}
	o := newOrchestrator(t, slow)
	results := o.Run(context.Background(), []types.SuiteConfig{suiteCfg("x", "slow")}, rctx(false))

	assert.Equal(t, StatusTimedOut, results.Suites[0].Status)
	assert.False(t, results.Passed)
}

func TestFilterForMode(t *testing.T) {
	suites := []types.SuiteConfig{
		{Name: "always", Runner: "a"},
		{Name: "ci-only", Runner: "b", CI: true},
	}
	assert.Len(t, FilterForMode(suites, false), 1)
	assert.Len(t, FilterForMode(suites, true), 2)
}

func TestCoverageAggregatedAcrossSuites(t *testing.T) {
	pct := func(v float64) *float64 { return &v }
	withCov := passing(5)
	withCov.Coverage = map[string]*coverage.Result{
		"rust": {Success: true, LineCoverage: pct(80), Files: map[string]float64{"src/a.rs": 80}},
	}
	moreCov := passing(5)
	moreCov.Coverage = map[string]*coverage.Result{
		"rust": {Success: true, LineCoverage: pct(60), Files: map[string]float64{"src/b.rs": 60}},
	}
	empty := passing(5) // no targets, contributes no coverage

	o := newOrchestrator(t,
		&fakeRunner{name: "r1", available: true, result: withCov},
		&fakeRunner{name: "r2", available: true, result: moreCov},
		&fakeRunner{name: "r3", available: true, result: empty},
	)
	results := o.Run(context.Background(), []types.SuiteConfig{
		suiteCfg("a", "r1"), suiteCfg("b", "r2"), suiteCfg("c", "r3"),
	}, rctx(false))

	require.True(t, results.Passed)
	pcts := results.Coverage.Percentages()
	require.Len(t, pcts, 1)
	assert.InDelta(t, 70.0, pcts["rust"], 0.01)
}

func TestAggregatedSummaryExcludesUntimedAndSkipped(t *testing.T) {
	timed := runner.Passed(100 * time.Millisecond).WithTests([]types.TestResult{
		types.PassedTest("fast", 20*time.Millisecond),
		types.PassedTest("slow", 80*time.Millisecond),
		types.PassedTest("untimed", 0),
	})

	o := newOrchestrator(t,
		&fakeRunner{name: "timed", available: true, result: timed},
		&fakeRunner{name: "absent", available: false},
	)
	results := o.Run(context.Background(), []types.SuiteConfig{
		suiteCfg("a", "timed"),
		suiteCfg("b", "absent"),
	}, rctx(true))

	summary := results.Aggregated()
	assert.Equal(t, 3, summary.TestCount)
	assert.InDelta(t, 50.0, summary.AvgMs, 0.01)
	assert.InDelta(t, 80.0, summary.MaxMs, 0.01)
	assert.Equal(t, "slow", summary.MaxTest)
}
