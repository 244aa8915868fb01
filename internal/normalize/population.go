package normalize

import "sort"

// Population is an immutable, sorted snapshot of one metric across friends.
// Build it once per analysis run and share it read-only between scorers.
type Population struct {
	sorted []float64
	median float64
}

// NewPopulation copies and sorts values.
func NewPopulation(values []float64) *Population {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return &Population{sorted: sorted, median: Median(sorted)}
}

// Len returns the population size.
func (p *Population) Len() int {
	if p == nil {
		return 0
	}
	return len(p.sorted)
}

// Rank returns the percentile rank of value within the population.
func (p *Population) Rank(value float64) float64 {
	if p == nil {
		return 0
	}
	return PercentileRank(value, p.sorted)
}

// Median returns the population median.
func (p *Population) Median() float64 {
	if p == nil {
		return 0
	}
	return p.median
}

// Quantile returns the q-quantile of the population.
func (p *Population) Quantile(q float64) float64 {
	if p == nil {
		return 0
	}
	return Quantile(p.sorted, q)
}

// Min returns the smallest value, or 0 for an empty population.
func (p *Population) Min() float64 {
	if p.Len() == 0 {
		return 0
	}
	return p.sorted[0]
}

// Max returns the largest value, or 0 for an empty population.
func (p *Population) Max() float64 {
	if p.Len() == 0 {
		return 0
	}
	return p.sorted[len(p.sorted)-1]
}
