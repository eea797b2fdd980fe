package core

import (
	"math"

	"github.com/markcheno/go-talib"
)

// neutralRSI is reported while prices have not moved at all.
const neutralRSI = 50.0

// -----------------------------------------------------------------------------

// MaskLeading overwrites the first lookback entries with NaN. talib fills its
// lookback with zeros.
func MaskLeading(values []float64, lookback int) {
	for i := 0; i < lookback && i < len(values); i++ {
		values[i] = NaN
	}
}

// -----------------------------------------------------------------------------

// SMA is the simple moving average; the first period-1 values are NaN.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return NaNSeries(len(values))
	}
	out := talib.Sma(values, period)
	MaskLeading(out, period-1)
	return out
}

// -----------------------------------------------------------------------------

// EMA is seeded with the SMA of the first defined window. Leading NaNs in
// values are skipped, so an EMA of an EMA stays aligned.
func EMA(values []float64, period int) []float64 {
	out := NaNSeries(len(values))
	if period <= 0 {
		return out
	}

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}

	ema := talib.Ema(values[start:], period)
	copy(out[start+period-1:], ema[period-1:])
	return out
}

// -----------------------------------------------------------------------------

// RSI uses Wilder smoothing. The first period values are NaN, a window without
// losses yields 100 and a series that has not moved yet yields 50.
func RSI(closes []float64, period int) []float64 {
	if period < 2 || len(closes) <= period {
		return NaNSeries(len(closes))
	}

	out := talib.Rsi(closes, period)
	MaskLeading(out, period)

	// Wilder averages stay positive once any change occurred, so both are
	// zero exactly while the prefix is flat. talib reports 0 there.
	for i, moved := period, firstMove(closes); i < moved; i++ {
		out[i] = neutralRSI
	}
	return out
}

// firstMove is the index of the first close that differs from its predecessor,
// or len(closes) when none does.
func firstMove(closes []float64) int {
	for i := 1; i < len(closes); i++ {
		if closes[i] != closes[i-1] {
			return i
		}
	}
	return len(closes)
}

// -----------------------------------------------------------------------------

// MACD returns the MACD line, its signal EMA and the histogram. Both price
// EMAs are SMA-seeded, so the line is defined from index slow-1.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	n := len(closes)
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	macd = NaNSeries(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(emaFast[i]) && !math.IsNaN(emaSlow[i]) {
			macd[i] = emaFast[i] - emaSlow[i]
		}
	}

	sig = EMA(macd, signal)
	hist = NaNSeries(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(macd[i]) && !math.IsNaN(sig[i]) {
			hist[i] = macd[i] - sig[i]
		}
	}
	return macd, sig, hist
}
