package core

import "math"

// NaN marks an undefined indicator value in aligned series.
var NaN = math.NaN()

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// -----------------------------------------------------------------------------

// NaNSeries returns n NaN values.
func NaNSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NaN
	}
	return out
}

// -----------------------------------------------------------------------------

// LastDefined returns the last non-NaN value and its index, or (NaN, -1).
func LastDefined(values []float64) (float64, int) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i], i
		}
	}
	return NaN, -1
}

// -----------------------------------------------------------------------------

// MaxMin returns the extremes of values, ignoring NaN.
func MaxMin(values []float64) (float64, float64) {
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	if math.IsInf(hi, -1) {
		return NaN, NaN
	}
	return hi, lo
}
