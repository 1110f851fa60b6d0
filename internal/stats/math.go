// Package stats holds the small numeric helpers shared by the analytics jobs.
package stats

import "math"

// Round rounds x to the given number of decimal places, half to even.
func Round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.RoundToEven(x*pow) / pow
}

// RoundInt rounds x to the nearest integer, half to even.
func RoundInt(x float64) int {
	return int(math.RoundToEven(x))
}

// Ratio returns num/den, or 0 when den is 0.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// WeightedMean returns Σ(values[i]·weights[i]) / Σ(weights), or 0 when the
// total weight is 0. Extra values or weights are ignored.
func WeightedMean(values, weights []float64) float64 {
	n := len(values)
	if len(weights) < n {
		n = len(weights)
	}
	var sum, total float64
	for i := 0; i < n; i++ {
		sum += values[i] * weights[i]
		total += weights[i]
	}
	return Ratio(sum, total)
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
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

// Jaccard returns |a∩b| / |a∪b|; two empty sets have similarity 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return Ratio(float64(inter), float64(union))
}

// JaccardDistance returns 1 − Jaccard(a, b); the distance of an empty union is 0.
func JaccardDistance(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	return 1 - Jaccard(a, b)
}
