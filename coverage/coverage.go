// Package coverage defines the coverage result model shared by all
// collectors, plus the aggregation rules that combine per-suite results
// into a per-language view.
package coverage

import (
	"time"
)

// Result is the outcome of one coverage collection attempt.
type Result struct {
	// Success is false only when collection itself broke. A missing tool
	// produces an unavailable result, which is still Success with no data.
	Success bool
	// Err holds the failure message when Success is false.
	Err string
	// Duration is the collection time.
	Duration time.Duration
	// LineCoverage is the overall line percentage (0-100), nil when no
	// data was collected.
	LineCoverage *float64
	// Files maps normalized file paths to line coverage percentages.
	Files map[string]float64
	// Packages maps package names to line coverage percentages.
	Packages map[string]float64
}

// Failed builds a collection failure result.
func Failed(duration time.Duration, msg string) *Result {
	return &Result{
		Success:  false,
		Err:      msg,
		Duration: duration,
		Files:    map[string]float64{},
		Packages: map[string]float64{},
	}
}

// Unavailable is the best-effort result when the underlying tool is not
// installed. It carries no data and is not a failure.
func Unavailable() *Result {
	return &Result{
		Success:  true,
		Files:    map[string]float64{},
		Packages: map[string]float64{},
	}
}

// HasData reports whether any coverage numbers were collected.
func (r *Result) HasData() bool {
	return r != nil && r.LineCoverage != nil
}

// Percent returns the overall line coverage, or 0 with ok=false when none
// was collected.
func (r *Result) Percent() (float64, bool) {
	if !r.HasData() {
		return 0, false
	}
	return *r.LineCoverage, true
}

// Merge combines two results for the same language. Per file it keeps the
// maximum value seen, treating overlapping suites as additive evidence, and
// recomputes the overall percentage as the mean of the merged per-file
// values. Merge is commutative and associative, and never lowers a file's
// recorded coverage.
func Merge(a, b *Result) *Result {
	if a == nil || a.empty() {
		if b == nil || b.empty() {
			// Keep a failure visible over an empty success.
			if a != nil && !a.Success {
				return a
			}
			return firstNonNil(b, a)
		}
		return b
	}
	if b == nil || b.empty() {
		return a
	}

	merged := &Result{
		Success:  a.Success && b.Success,
		Duration: a.Duration + b.Duration,
		Files:    map[string]float64{},
		Packages: map[string]float64{},
	}
	for path, pct := range a.Files {
		merged.Files[path] = pct
	}
	for path, pct := range b.Files {
		if existing, ok := merged.Files[path]; !ok || pct > existing {
			merged.Files[path] = pct
		}
	}
	for pkg, pct := range a.Packages {
		merged.Packages[pkg] = pct
	}
	for pkg, pct := range b.Packages {
		if existing, ok := merged.Packages[pkg]; !ok || pct > existing {
			merged.Packages[pkg] = pct
		}
	}

	if len(merged.Files) > 0 {
		mean := meanOf(merged.Files)
		merged.LineCoverage = &mean
	} else {
		// No per-file detail on either side; fall back to the larger of
		// the two overall numbers.
		merged.LineCoverage = maxOverall(a, b)
	}
	return merged
}

func (r *Result) empty() bool {
	return !r.HasData() && len(r.Files) == 0
}

func firstNonNil(a, b *Result) *Result {
	if a != nil {
		return a
	}
	return b
}

func meanOf(values map[string]float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOverall(a, b *Result) *float64 {
	av, aok := a.Percent()
	bv, bok := b.Percent()
	switch {
	case aok && bok:
		if bv > av {
			av = bv
		}
		return &av
	case aok:
		return &av
	case bok:
		return &bv
	default:
		return nil
	}
}

// Aggregate accumulates per-language coverage across suites.
type Aggregate map[string]*Result

// Fold merges one suite's contribution for a language into the aggregate.
func (a Aggregate) Fold(language string, r *Result) {
	if r == nil {
		return
	}
	if existing, ok := a[language]; ok {
		a[language] = Merge(existing, r)
		return
	}
	a[language] = r
}

// Percentages returns the overall percentage per language, skipping
// languages with no collected data.
func (a Aggregate) Percentages() map[string]float64 {
	out := map[string]float64{}
	for lang, r := range a {
		if pct, ok := r.Percent(); ok {
			out[lang] = pct
		}
	}
	return out
}

// GroupPercentages flattens per-package coverage across all languages,
// used for per-group minimum checks.
func (a Aggregate) GroupPercentages() map[string]float64 {
	out := map[string]float64{}
	for _, r := range a {
		for pkg, pct := range r.Packages {
			if existing, ok := out[pkg]; !ok || pct > existing {
				out[pkg] = pct
			}
		}
	}
	return out
}
