// Package floatutils provides utilities for working with floats
package floatutils

import "math"

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max.
// If min exceeds the floating point, then the function returns the min.
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}

// ArgMax returns the index of the maximum value in a slice of float64.
// Ties are broken by taking the first maximal index.
func ArgMax(values []float64) int {
	argMax := 0
	for i, value := range values {
		if value > values[argMax] {
			argMax = i
		}
	}
	return argMax
}

// Mean returns the arithmetic mean of a slice of float64. The mean of
// an empty slice is 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}
