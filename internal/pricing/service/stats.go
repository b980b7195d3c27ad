package service

import "math"

// PriceStats holds the aggregate of a set of listing prices.
type PriceStats struct {
	Min  float64
	Max  float64
	Mean float64
}

// ComputeStats returns min, max and the arithmetic mean rounded to cents.
// ok is false for an empty input.
func ComputeStats(prices []float64) (stats PriceStats, ok bool) {
	if len(prices) == 0 {
		return PriceStats{}, false
	}

	stats.Min = prices[0]
	stats.Max = prices[0]
	var sum float64
	for _, p := range prices {
		sum += p
		stats.Min = math.Min(stats.Min, p)
		stats.Max = math.Max(stats.Max, p)
	}
	stats.Mean = roundCents(sum / float64(len(prices)))
	return stats, true
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
