package analysis

import (
	"stock-screener/src/analysis/core"
	"stock-screener/src/models"

	"github.com/markcheno/go-talib"
)

// CalculateAllIndicators computes every indicator column for series. All
// columns have the series length; entries before a window fills are NaN.
// An empty series yields empty columns.
func CalculateAllIndicators(series models.MPriceSeries, cfg models.MIndicatorConfig) models.MIndicatorSet {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()
	n := len(closes)

	macd, signal, hist := core.MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	upper, mid, lower := bollinger(closes, cfg.BollingerPeriod, cfg.BollingerK)

	set := models.MIndicatorSet{
		Ticker:         series.Ticker,
		Length:         n,
		Close:          models.MSeries(closes),
		SMAShort:       models.MSeries(core.SMA(closes, cfg.SMAShort)),
		SMAMedium:      models.MSeries(core.SMA(closes, cfg.SMAMedium)),
		SMALong:        models.MSeries(core.SMA(closes, cfg.SMALong)),
		RSI:            models.MSeries(core.RSI(closes, cfg.RSIPeriod)),
		MACD:           models.MSeries(macd),
		MACDSignal:     models.MSeries(signal),
		MACDHist:       models.MSeries(hist),
		BollingerUpper: models.MSeries(upper),
		BollingerMid:   models.MSeries(mid),
		BollingerLower: models.MSeries(lower),
		ATR:            models.MSeries(atr(highs, lows, closes, cfg.ATRPeriod)),
		VolumeAvg:      models.MSeries(core.SMA(volumes, cfg.BreakoutWindow)),
	}
	if n > 0 {
		set.LastVolume = volumes[n-1]
	}

	set.High52Week, set.Low52Week = yearRange(highs, lows, cfg.PatternLookback)
	set.Patterns = DetectPatterns(highs, lows, closes, volumes, set.VolumeAvg, cfg)
	return set
}

// -----------------------------------------------------------------------------

// bollinger wraps talib.BBands (SMA middle band, population deviation) and
// masks its zero-filled lookback.
func bollinger(closes []float64, period int, k float64) (upper, mid, lower []float64) {
	n := len(closes)
	if period < 2 || n < period {
		return core.NaNSeries(n), core.NaNSeries(n), core.NaNSeries(n)
	}
	upper, mid, lower = talib.BBands(closes, period, k, k, talib.SMA)
	core.MaskLeading(upper, period-1)
	core.MaskLeading(mid, period-1)
	core.MaskLeading(lower, period-1)
	return upper, mid, lower
}

// -----------------------------------------------------------------------------

// atr wraps talib.Atr; the first period values are undefined.
func atr(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period < 1 || n <= period {
		return core.NaNSeries(n)
	}
	out := talib.Atr(highs, lows, closes, period)
	core.MaskLeading(out, period)
	return out
}

// -----------------------------------------------------------------------------

// yearRange is the high/low over the trailing lookback bars, 0 when empty.
func yearRange(highs, lows []float64, lookback int) (float64, float64) {
	if len(highs) == 0 {
		return 0, 0
	}
	from := 0
	if lookback > 0 && len(highs) > lookback {
		from = len(highs) - lookback
	}
	hi, _ := core.MaxMin(highs[from:])
	_, lo := core.MaxMin(lows[from:])
	return hi, lo
}
