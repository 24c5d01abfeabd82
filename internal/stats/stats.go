// Package stats holds the small numeric helpers used by the measurement engine.
package stats

import (
	"math"
	"sort"
)

// Mean calculates the average of a slice of float64
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// TrimmedMean averages values after removing tail outliers.
// With 10 or more samples the lowest and highest 20% are dropped, with 3 to 9
// samples only the single min and max, and shorter inputs are averaged as-is.
func TrimmedMean(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	switch {
	case n >= 10:
		cut := int(math.Floor(float64(n) * 0.2))
		return Mean(sorted[cut : n-cut])
	case n >= 3:
		return Mean(sorted[1 : n-1])
	default:
		return Mean(sorted)
	}
}

// TrimExtremes returns a copy of values without its single lowest and single
// highest sample. Order of the remaining samples is preserved.
func TrimExtremes(values []float64) []float64 {
	if len(values) < 3 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}

	minIdx, maxIdx := 0, 0
	for i, v := range values {
		if v < values[minIdx] {
			minIdx = i
		}
		if v > values[maxIdx] {
			maxIdx = i
		}
	}
	if minIdx == maxIdx {
		// all samples equal
		maxIdx = (minIdx + 1) % len(values)
	}

	out := make([]float64, 0, len(values)-2)
	for i, v := range values {
		if i == minIdx || i == maxIdx {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Jitter is the mean absolute difference between temporally adjacent samples.
func Jitter(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(samples); i++ {
		total += math.Abs(samples[i] - samples[i-1])
	}
	return total / float64(len(samples)-1)
}

// MinMax returns the smallest and largest value, or zeros for an empty slice.
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
