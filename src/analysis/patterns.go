package analysis

import (
	"stock-screener/src/analysis/core"
	"stock-screener/src/models"
)

// swingRadius is the neighbourhood a local extreme must dominate.
const swingRadius = 2

// DetectPatterns evaluates the pattern flags on the trailing window.
func DetectPatterns(highs, lows, closes, volumes, volumeAvg []float64, cfg models.MIndicatorConfig) models.MPatternFlags {
	var flags models.MPatternFlags
	n := len(closes)
	if n == 0 {
		return flags
	}

	from := 0
	if cfg.PatternLookback > 0 && n > cfg.PatternLookback {
		from = n - cfg.PatternLookback
	}
	wHighs, wLows := highs[from:], lows[from:]

	flags.HigherLows = risingLows(wLows)
	flags.LowerHighs = fallingHighs(wHighs)

	// 52-week band
	last := closes[n-1]
	hi, _ := core.MaxMin(wHighs)
	_, lo := core.MaxMin(wLows)
	band := cfg.NearExtremePct
	if hi > 0 {
		flags.Near52WeekHigh = -core.CalculateChangePercent(last, hi) <= band
	}
	if lo > 0 {
		flags.Near52WeekLow = core.CalculateChangePercent(last, lo) <= band
	}

	// Breakout against the prior window, excluding the latest bar
	w := cfg.BreakoutWindow
	if w > 1 && n > w {
		priorHigh, _ := core.MaxMin(highs[n-1-w : n-1])
		_, priorLow := core.MaxMin(lows[n-1-w : n-1])
		flags.BreakoutUp = last > priorHigh
		flags.BreakoutDown = last < priorLow

		if len(volumeAvg) == n {
			ratio := core.CalculateVolumeRatio(volumes[n-1], volumeAvg[n-2])
			flags.VolumeSurge = ratio >= cfg.VolumeSurgeFactor
		}
	}
	return flags
}

// -----------------------------------------------------------------------------

// swingLows returns indices whose low is strictly below every neighbour
// within swingRadius.
func swingLows(lows []float64) []int {
	return swings(lows, func(center, other float64) bool { return center < other })
}

func swingHighs(highs []float64) []int {
	return swings(highs, func(center, other float64) bool { return center > other })
}

func swings(values []float64, dominates func(center, other float64) bool) []int {
	var out []int
	for i := swingRadius; i < len(values)-swingRadius; i++ {
		ok := true
		for j := i - swingRadius; j <= i+swingRadius && ok; j++ {
			if j != i && !dominates(values[i], values[j]) {
				ok = false
			}
		}
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// risingLows compares the last two swing lows. With fewer than two swings
// it compares the minimum of the recent half against the earlier half.
func risingLows(lows []float64) bool {
	if idx := swingLows(lows); len(idx) >= 2 {
		return lows[idx[len(idx)-1]] > lows[idx[len(idx)-2]]
	}
	earlier, recent, ok := halves(lows)
	if !ok {
		return false
	}
	_, loEarly := core.MaxMin(earlier)
	_, loRecent := core.MaxMin(recent)
	return loRecent > loEarly
}

// -----------------------------------------------------------------------------

func fallingHighs(highs []float64) bool {
	if idx := swingHighs(highs); len(idx) >= 2 {
		return highs[idx[len(idx)-1]] < highs[idx[len(idx)-2]]
	}
	earlier, recent, ok := halves(highs)
	if !ok {
		return false
	}
	hiEarly, _ := core.MaxMin(earlier)
	hiRecent, _ := core.MaxMin(recent)
	return hiRecent < hiEarly
}

func halves(values []float64) ([]float64, []float64, bool) {
	if len(values) < 2*swingRadius+1 {
		return nil, nil, false
	}
	mid := len(values) / 2
	return values[:mid], values[mid:], true
}
