package signals

import (
	"math"
	"reflect"
	"testing"

	"stock-screener/src/models"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bullishFlags = []string{
	"AboveSMAShort", "AboveSMAMedium", "AboveSMALong", "GoldenCross", "MACDBullishCross",
	"RSIHealthy", "HigherLows", "Near52WeekHigh", "BreakoutUp", "VolumeSurge",
}

func setFlag(s *models.MSignalSet, name string, v bool) {
	reflect.ValueOf(s).Elem().FieldByName(name).SetBool(v)
}

func TestWeightsSumTo100(t *testing.T) {
	total := 0.0
	for _, w := range scoreWeights {
		total += w.Weight
	}
	assert.Equal(t, 100.0, total)
}

func TestTechScoreBounds(t *testing.T) {
	var none models.MSignalSet
	assert.Equal(t, 0.0, TechScore(none))

	all := models.MSignalSet{LastRSI: null.FloatFrom(55)}
	for _, f := range bullishFlags {
		setFlag(&all, f, true)
	}
	assert.Equal(t, 100.0, TechScore(all))
}

func TestTechScoreMonotonicPerFlag(t *testing.T) {
	// every subset of the first few flags plus each flag toggled
	for mask := 0; mask < 1<<len(bullishFlags); mask += 37 {
		base := models.MSignalSet{LastRSI: null.FloatFrom(50)}
		for i, f := range bullishFlags {
			setFlag(&base, f, mask&(1<<i) != 0)
		}
		for _, f := range bullishFlags {
			off, on := base, base
			setFlag(&off, f, false)
			setFlag(&on, f, true)
			assert.GreaterOrEqual(t, TechScore(on), TechScore(off), "flag %s mask %d", f, mask)
		}
	}
}

func TestVerdictThresholds(t *testing.T) {
	assert.Equal(t, models.VerdictBullish, Verdict(70))
	assert.Equal(t, models.VerdictBullish, Verdict(100))
	assert.Equal(t, models.VerdictNeutral, Verdict(69.9))
	assert.Equal(t, models.VerdictNeutral, Verdict(40))
	assert.Equal(t, models.VerdictBearish, Verdict(39.9))
	assert.Equal(t, models.VerdictBearish, Verdict(0))
}

func TestFinalAction(t *testing.T) {
	tests := []struct {
		score  float64
		trend  bool
		fund   bool
		action models.MAction
	}{
		{80, true, true, models.ActionBuy},
		{80, true, false, models.ActionHold},
		{80, false, true, models.ActionSell},
		{55, true, true, models.ActionHold},
		{55, false, true, models.ActionSell},
		{20, true, true, models.ActionSell},
		{39.99, true, false, models.ActionSell},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.action, FinalAction(tt.score, tt.trend, tt.fund), "%+v", tt)
		// pure: same inputs, same answer
		assert.Equal(t, FinalAction(tt.score, tt.trend, tt.fund), FinalAction(tt.score, tt.trend, tt.fund))
	}
}

func constSeries(n int, v float64) models.MSeries {
	out := make(models.MSeries, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestGenerateTechnicalSignals(t *testing.T) {
	n := 5
	ind := models.MIndicatorSet{
		Ticker:     "ABC.ST",
		Length:     n,
		Close:      constSeries(n, 110),
		SMAShort:   constSeries(n, 105),
		SMAMedium:  constSeries(n, 100),
		SMALong:    constSeries(n, 90),
		RSI:        constSeries(n, 60),
		MACD:       constSeries(n, 1.5),
		MACDSignal: constSeries(n, 1.0),
		Patterns:   models.MPatternFlags{HigherLows: true, Near52WeekHigh: true},
	}

	s := GenerateTechnicalSignals(ind)
	assert.True(t, s.AboveSMAShort && s.AboveSMAMedium && s.AboveSMALong)
	assert.True(t, s.GoldenCross)
	assert.True(t, s.PrimaryTrend)
	assert.True(t, s.RSIHealthy)
	assert.False(t, s.RSIOverbought)
	assert.True(t, s.MACDBullishCross)
	assert.Equal(t, 60.0, s.LastRSI.Float64)
	// 10+15+15+10+15+10+5+5+5
	assert.Equal(t, 90.0, s.TechScore)
	assert.Equal(t, models.VerdictBullish, s.Verdict)
}

func TestGenerateTechnicalSignalsShortHistory(t *testing.T) {
	n := 3
	ind := models.MIndicatorSet{
		Length:    n,
		Close:     constSeries(n, 10),
		SMAShort:  constSeries(n, math.NaN()),
		SMAMedium: constSeries(n, math.NaN()),
		SMALong:   constSeries(n, math.NaN()),
		RSI:       constSeries(n, math.NaN()),
		MACD:      constSeries(n, math.NaN()),
	}
	s := GenerateTechnicalSignals(ind)
	assert.False(t, s.AboveSMAShort)
	assert.False(t, s.GoldenCross)
	assert.True(t, s.PrimaryTrend)
	assert.False(t, s.LastRSI.Valid)
	assert.Equal(t, 0.0, s.TechScore)
	assert.Equal(t, models.VerdictBearish, s.Verdict)
}

func TestPrimaryTrendFallsBackToMedium(t *testing.T) {
	assert.True(t, primaryTrend(10, 9, math.NaN()))
	assert.False(t, primaryTrend(10, 11, math.NaN()))
	assert.False(t, primaryTrend(10, 9, 12))
}

func testThresholds() models.MScoringConfig {
	return models.MScoringConfig{
		MaxPERatio:        25,
		MinProfitMargin:   0.10,
		MinRevenueGrowth:  0.05,
		MinEarningsGrowth: 0.05,
		MinCriteriaPassed: 3,
		MinMetricsPresent: 2,
	}
}

func TestFundamentalsAnalyzer(t *testing.T) {
	a := NewFundamentalsAnalyzer(testThresholds())

	good := models.MFundamentals{
		Ticker:         "ABC.ST",
		PERatio:        null.FloatFrom(25),
		ProfitMargin:   null.FloatFrom(0.10),
		RevenueGrowth:  null.FloatFrom(0.02),
		EarningsGrowth: null.FloatFrom(0.08),
	}
	v := a.Analyze(good)
	assert.True(t, v.Pass)
	assert.Equal(t, 4, v.Evaluated)
	assert.Equal(t, 3, v.Passed, "boundary values pass")
	require.Len(t, v.Criteria, 4)
	assert.Equal(t, "(0, 25]", v.Criteria[0].Threshold)
	assert.False(t, v.Criteria[2].Passed)
}

func TestFundamentalsAnalyzerRejects(t *testing.T) {
	a := NewFundamentalsAnalyzer(testThresholds())

	negativePE := models.MFundamentals{
		PERatio:        null.FloatFrom(-4),
		ProfitMargin:   null.FloatFrom(0.2),
		RevenueGrowth:  null.FloatFrom(0.2),
		EarningsGrowth: null.FloatFrom(0.2),
	}
	v := a.Analyze(negativePE)
	assert.True(t, v.Pass, "three of four still pass")
	assert.False(t, v.Criteria[0].Passed)

	tooFew := models.MFundamentals{ProfitMargin: null.FloatFrom(0.5)}
	assert.False(t, a.Analyze(tooFew).Pass)

	assert.False(t, a.Analyze(models.MFundamentals{}).Pass)
}

func TestGoldenCrossIsNotThePrimaryTrend(t *testing.T) {
	n := 5
	ind := models.MIndicatorSet{
		Length:     n,
		Close:      constSeries(n, 95),
		SMAShort:   constSeries(n, 97),
		SMAMedium:  constSeries(n, 100),
		SMALong:    constSeries(n, 98),
		RSI:        constSeries(n, 55),
		MACD:       constSeries(n, 1.0),
		MACDSignal: constSeries(n, 0.5),
	}

	s := GenerateTechnicalSignals(ind)
	assert.True(t, s.GoldenCross)
	assert.False(t, s.PrimaryTrend, "close is below the 200-bar average")
	assert.Equal(t, models.ActionSell, FinalAction(s.TechScore, s.PrimaryTrend, true))
}

func TestNeutralRSIScoresAsHealthy(t *testing.T) {
	n := 3
	ind := models.MIndicatorSet{
		Length:    n,
		Close:     constSeries(n, 10),
		SMAShort:  constSeries(n, math.NaN()),
		SMAMedium: constSeries(n, math.NaN()),
		SMALong:   constSeries(n, math.NaN()),
		RSI:       constSeries(n, 50),
		MACD:      constSeries(n, math.NaN()),
	}
	s := GenerateTechnicalSignals(ind)
	assert.True(t, s.RSIHealthy)
	assert.False(t, s.RSIOverbought)
	assert.False(t, s.RSIOversold)
	// rsi_healthy 10 + rsi_not_overbought 5
	assert.Equal(t, 15.0, s.TechScore)
}
