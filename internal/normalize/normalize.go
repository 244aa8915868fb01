// Package normalize maps raw friend metrics onto [0, 1] relative to the whole
// friend population.
package normalize

import (
	"math"
	"sort"
)

const (
	// SigmoidScaleRatio sets the logistic scale s = k × ratio, so the curve
	// passes 0.5 at the centre k and saturates within a few multiples of k.
	SigmoidScaleRatio = 0.5
	// MinSigmoidCenter floors the centre so an all-zero population still has
	// a usable curve.
	MinSigmoidCenter = 1e-6
)

// PercentileRank returns the midpoint rank of value within an ascending
// population: (count below + count below-or-equal) / 2N. An empty population
// ranks everything 0.
func PercentileRank(value float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	below := sort.SearchFloat64s(sorted, value)
	belowOrEqual := sort.Search(n, func(i int) bool { return sorted[i] > value })
	return float64(below+belowOrEqual) / float64(2*n)
}

// Sigmoid is the logistic curve 1 / (1 + exp(-(x-k)/s)) centred on k with
// scale s = k × SigmoidScaleRatio.
func Sigmoid(x, k float64) float64 {
	if k < MinSigmoidCenter {
		k = MinSigmoidCenter
	}
	s := k * SigmoidScaleRatio
	return 1 / (1 + math.Exp(-(x-k)/s))
}

// Median returns the middle of an ascending slice, averaging the two middle
// values for even lengths. Empty input yields 0.
func Median(sorted []float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n%2 == 1:
		return sorted[n/2]
	default:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
}

// Quantile returns the q-quantile of an ascending slice using linear
// interpolation between closest ranks. Empty input yields 0.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
