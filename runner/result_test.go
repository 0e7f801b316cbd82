package runner

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelabs/suitecheck/targets"
	"github.com/probelabs/suitecheck/types"
)

func TestAvgDurationExcludesUntimedTests(t *testing.T) {
	r := Passed(time.Second).WithTests([]types.TestResult{
		types.PassedTest("timed-a", 100*time.Millisecond),
		types.PassedTest("timed-b", 300*time.Millisecond),
		types.PassedTest("untimed", 0),
	})

	assert.Equal(t, 200*time.Millisecond, r.AvgDuration())
}

func TestAvgDurationNoTimedTests(t *testing.T) {
	r := Passed(0).WithTests([]types.TestResult{
		types.PassedTest("a", 0),
		types.PassedTest("b", 0),
	})
	assert.Zero(t, r.AvgDuration())
	assert.Nil(t, r.SlowestTest())
}

func TestSlowestTest(t *testing.T) {
	r := Passed(0).WithTests([]types.TestResult{
		types.PassedTest("fast", 10*time.Millisecond),
		types.PassedTest("slow", 90*time.Millisecond),
		types.PassedTest("untimed", 0),
	})

	slowest := r.SlowestTest()
	require.NotNil(t, slowest)
	assert.Equal(t, "slow", slowest.Name)
}

func TestWithTestsRecomputesPassed(t *testing.T) {
	r := Passed(0).WithTests([]types.TestResult{
		types.PassedTest("a", 0),
		types.FailedTest("b", 0),
	})
	assert.False(t, r.Passed)
	assert.Equal(t, 1, r.FailedCount())

	// Skipped tests do not fail the run.
	r = Passed(0).WithTests([]types.TestResult{
		types.PassedTest("a", 0),
		types.SkippedTest("b"),
	})
	assert.True(t, r.Passed)
	assert.Equal(t, 1, r.SkippedCount())
}

func TestRunnerRegistry(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "cargo")
	assert.Contains(t, names, "go")
	assert.Contains(t, names, "bats")
	assert.Contains(t, names, "custom")

	r, ok := Get("pytest")
	require.True(t, ok)
	assert.Equal(t, "pytest", r.Name())

	_, ok = Get("nope")
	assert.False(t, ok)
}

func TestCustomRunnerRequiresCommand(t *testing.T) {
	rctx := &Context{Root: t.TempDir(), Tools: &Toolchain{}}
	result := (&CustomRunner{}).Run(context.Background(), types.SuiteConfig{Runner: "custom"}, rctx)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Error, "command")
}

func TestTimeoutErrorAdvice(t *testing.T) {
	msg := TimeoutError("cargo", 5*time.Second)
	assert.Contains(t, msg, "timed out after 5s")
	assert.Contains(t, msg, "deadlocks")
}

func TestBatsRunnerUnresolvableTargetFailsSuite(t *testing.T) {
	rctx := &Context{
		Root:  t.TempDir(),
		Tools: &Toolchain{Bats: true},
		Meta:  targets.Metadata{Root: t.TempDir()},
	}
	cfg := types.SuiteConfig{Runner: "bats", Targets: []string{"no-such-binary"}}

	result := (&BatsRunner{}).Run(context.Background(), cfg, rctx)

	require.False(t, result.Passed)
	assert.Contains(t, result.Error, "no-such-binary")
	assert.Zero(t, result.TotalTime)
	assert.Empty(t, result.Coverage)
}

func TestCustomRunnerCancelledIsNotTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh commands")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rctx := &Context{Root: t.TempDir(), Tools: &Toolchain{}}
	result := (&CustomRunner{}).Run(ctx, types.SuiteConfig{Runner: "custom", Command: "sleep 5"}, rctx)

	require.False(t, result.Passed)
	assert.Contains(t, result.Error, "cancelled")
	assert.NotContains(t, result.Error, "timed out")
}
