package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/probelabs/suitecheck/suite"
)

const (
	MetricsNamespace = "suitecheck"
)

var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	suiteResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_results",
		Help:      "Result of test suites (1 pass, 0 fail)",
	}, []string{
		"project",
		"run_id",
		"suite",
		"runner",
		"status",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Total number of tests executed",
	}, []string{
		"project",
		"run_id",
		"suite",
	})

	testsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_skipped",
		Help:      "Number of skipped tests",
	}, []string{
		"project",
		"run_id",
		"suite",
	})

	suiteDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_duration_ms",
		Help:      "Wall-clock duration of test suites in milliseconds",
	}, []string{
		"project",
		"run_id",
		"suite",
	})

	coveragePercent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "coverage_percent",
		Help:      "Line coverage percentage by language",
	}, []string{
		"project",
		"run_id",
		"language",
	})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "violations_total",
		Help:      "Count of threshold violations",
	}, []string{
		"project",
		"run_id",
		"kind",
	})
)

func RecordError(err string) {
	errorsTotal.WithLabelValues(err).Inc()
}

// RecordSuite publishes one suite's outcome.
func RecordSuite(project, runID string, result suite.Result) {
	passed := 0.0
	if result.Passed {
		passed = 1.0
	}
	suiteResults.WithLabelValues(project, runID, result.Name, result.Runner, string(result.Status)).Set(passed)
	testsTotal.WithLabelValues(project, runID, result.Name).Add(float64(result.TestCount))
	testsSkipped.WithLabelValues(project, runID, result.Name).Add(float64(result.SkippedCount))
	suiteDuration.WithLabelValues(project, runID, result.Name).Set(result.TotalMs)
}

// RecordCoverage publishes the per-language aggregate.
func RecordCoverage(project, runID string, percentages map[string]float64) {
	for lang, pct := range percentages {
		coveragePercent.WithLabelValues(project, runID, lang).Set(pct)
	}
}

// RecordViolation counts one threshold violation by kind.
func RecordViolation(project, runID, kind string) {
	violationsTotal.WithLabelValues(project, runID, kind).Inc()
}
