package bench

import (
	"math"
	"sort"
)

// Stats summarizes a series of millisecond timings.
type Stats struct {
	Min    float64
	Max    float64
	Avg    float64
	Median float64
	StdDev float64
}

// Compute derives Stats from raw timings. An empty series yields zeros;
// a single sample has zero deviation.
func Compute(times []float64) Stats {
	if len(times) == 0 {
		return Stats{}
	}

	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)

	var sum float64
	for _, t := range sorted {
		sum += t
	}
	avg := sum / float64(len(sorted))

	var variance float64
	if len(sorted) > 1 {
		for _, t := range sorted {
			variance += (t - avg) * (t - avg)
		}
		variance /= float64(len(sorted) - 1)
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Stats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Avg:    avg,
		Median: median,
		StdDev: math.Sqrt(variance),
	}
}
