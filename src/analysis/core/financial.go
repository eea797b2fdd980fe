package core

import "math"

// -----------------------------------------------------------------------------

// AggregateBar folds consecutive OHLCV rows into one: first open, max high,
// min low, last close, summed volume.
func AggregateBar(opens, highs, lows, closes []float64, volumes []int64) (open, high, low, closePrice float64, volume int64) {
	if len(closes) == 0 {
		return 0, 0, 0, 0, 0
	}

	open = opens[0]
	closePrice = closes[len(closes)-1]
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := range closes {
		high = math.Max(high, highs[i])
		low = math.Min(low, lows[i])
		volume += volumes[i]
	}
	return open, high, low, closePrice, volume
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the relative change in percent.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous * 100
}

// -----------------------------------------------------------------------------

// CalculateVolumeRatio compares a bar's volume with its trailing average.
// Without an average there is nothing to surge against and the ratio is 0.
func CalculateVolumeRatio(currentVol, avgVol float64) float64 {
	if avgVol <= 0 || math.IsNaN(avgVol) {
		return 0
	}
	return currentVol / avgVol
}
