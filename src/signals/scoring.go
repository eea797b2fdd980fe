package signals

import (
	"math"

	"stock-screener/src/models"

	"github.com/guregu/null/v6"
)

// RSI zones.
const (
	RSIOverbought   = 70.0
	RSIOversold     = 30.0
	RSIHealthyFloor = 40.0
)

// Verdict thresholds on the tech score.
const (
	BullishScore = 70.0
	BearishScore = 40.0
)

// weightedFlag is one bullish condition of the tech score.
type weightedFlag struct {
	Name   string
	Weight float64
	Test   func(s models.MSignalSet) bool
}

// scoreWeights sum to 100. A score only ever adds weights, so setting any
// bullish flag can never lower it.
var scoreWeights = []weightedFlag{
	{"above_sma_short", 10, func(s models.MSignalSet) bool { return s.AboveSMAShort }},
	{"above_sma_medium", 15, func(s models.MSignalSet) bool { return s.AboveSMAMedium }},
	{"above_sma_long", 15, func(s models.MSignalSet) bool { return s.AboveSMALong }},
	{"golden_cross", 10, func(s models.MSignalSet) bool { return s.GoldenCross }},
	{"macd_bullish", 15, func(s models.MSignalSet) bool { return s.MACDBullishCross }},
	{"rsi_healthy", 10, func(s models.MSignalSet) bool { return s.RSIHealthy }},
	{"rsi_not_overbought", 5, func(s models.MSignalSet) bool { return s.LastRSI.Valid && !s.RSIOverbought }},
	{"higher_lows", 5, func(s models.MSignalSet) bool { return s.HigherLows }},
	{"near_52w_high", 5, func(s models.MSignalSet) bool { return s.Near52WeekHigh }},
	{"breakout_up", 5, func(s models.MSignalSet) bool { return s.BreakoutUp }},
	{"volume_surge", 5, func(s models.MSignalSet) bool { return s.VolumeSurge }},
}

// -----------------------------------------------------------------------------

// GenerateTechnicalSignals reduces an indicator set to flags, score and
// verdict using the most recent value of each column.
func GenerateTechnicalSignals(ind models.MIndicatorSet) models.MSignalSet {
	s := models.MSignalSet{Ticker: ind.Ticker}
	if ind.Length == 0 || len(ind.Close) == 0 {
		s.PrimaryTrend = true
		s.Verdict = Verdict(0)
		return s
	}

	last := ind.Close.Last()
	s.LastClose = last

	smaShort := ind.SMAShort.Last()
	smaMedium := ind.SMAMedium.Last()
	smaLong := ind.SMALong.Last()

	// NaN comparisons are false, so undefined averages never count.
	s.AboveSMAShort = last > smaShort
	s.AboveSMAMedium = last > smaMedium
	s.AboveSMALong = last > smaLong
	s.GoldenCross = smaMedium > smaLong
	s.PrimaryTrend = primaryTrend(last, smaMedium, smaLong)

	if rsi := ind.RSI.Last(); !math.IsNaN(rsi) {
		s.LastRSI = null.FloatFrom(rsi)
		s.RSIOverbought = rsi > RSIOverbought
		s.RSIOversold = rsi < RSIOversold
		s.RSIHealthy = rsi >= RSIHealthyFloor && rsi <= RSIOverbought
	}

	macd, sig := ind.MACD.Last(), ind.MACDSignal.Last()
	s.MACDBullishCross = macd > sig
	s.MACDBearishCross = macd < sig

	s.HigherLows = ind.Patterns.HigherLows
	s.Near52WeekHigh = ind.Patterns.Near52WeekHigh
	s.BreakoutUp = ind.Patterns.BreakoutUp
	s.VolumeSurge = ind.Patterns.VolumeSurge

	s.TechScore = TechScore(s)
	s.Verdict = Verdict(s.TechScore)
	return s
}

// -----------------------------------------------------------------------------

// primaryTrend is close above the long average, falling back to the medium
// one on short histories. With neither defined the trend is not held against
// the ticker.
func primaryTrend(last, smaMedium, smaLong float64) bool {
	switch {
	case !math.IsNaN(smaLong):
		return last > smaLong
	case !math.IsNaN(smaMedium):
		return last > smaMedium
	default:
		return true
	}
}

// -----------------------------------------------------------------------------

// TechScore sums the weights of the bullish flags set on s. Result is in [0, 100].
func TechScore(s models.MSignalSet) float64 {
	score := 0.0
	for _, w := range scoreWeights {
		if w.Test(s) {
			score += w.Weight
		}
	}
	return math.Max(0, math.Min(100, score))
}

// -----------------------------------------------------------------------------

func Verdict(score float64) models.MVerdict {
	switch {
	case score >= BullishScore:
		return models.VerdictBullish
	case score < BearishScore:
		return models.VerdictBearish
	default:
		return models.VerdictNeutral
	}
}

// -----------------------------------------------------------------------------

// FinalAction combines the technical verdict with trend and fundamentals.
// A bearish score or a broken primary trend always sells.
func FinalAction(techScore float64, primaryTrend, fundamentalsPass bool) models.MAction {
	verdict := Verdict(techScore)
	switch {
	case verdict == models.VerdictBearish || !primaryTrend:
		return models.ActionSell
	case verdict == models.VerdictBullish && fundamentalsPass:
		return models.ActionBuy
	default:
		return models.ActionHold
	}
}
