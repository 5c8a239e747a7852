package core

import (
	"math"
	"slices"

	"github.com/signalsfoundry/riskgraph-simulator/model"
)

// Percentile returns the q-th percentile (0..100) of values using linear
// interpolation between the closest ranks. values must be sorted
// ascending. An empty slice yields NaN.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Summarize computes the p5/p50/p95/mean summary of values. The input is
// not modified. An empty input yields NaN for every statistic.
func Summarize(values []float64) model.Stats {
	return summarizeOwned(slices.Clone(values))
}

// summarizeOwned is Summarize for a slice the caller hands over; it is
// sorted in place. The mean is summed in input order first.
func summarizeOwned(values []float64) model.Stats {
	if len(values) == 0 {
		nan := math.NaN()
		return model.Stats{P5: nan, P50: nan, P95: nan, Mean: nan}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	slices.Sort(values)
	return model.Stats{
		P5:   Percentile(values, 5),
		P50:  Percentile(values, 50),
		P95:  Percentile(values, 95),
		Mean: mean,
	}
}
