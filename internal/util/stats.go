package util

import "math"

// Mean returns the arithmetic mean of the samples, 0 for an empty slice.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

// MinMax returns the smallest and largest sample, (0, 0) for an empty slice.
func MinMax(samples []float64) (min, max float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	min, max = samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// SampleStdDev returns the sample standard deviation (n-1 denominator).
// Fewer than 2 samples yield 0.
func SampleStdDev(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	mean := Mean(samples)
	var sum float64
	for _, v := range samples {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)-1))
}
