package synthetic

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"stock-screener/src/analysis"
	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/guregu/null/v6"
)

// Random walk parameters (daily).
const (
	dailyDrift      = 0.0004
	dailyVolatility = 0.018
	minStartPrice   = 20.0
	startPriceRange = 280.0
	minVolume       = 50_000
	volumeRange     = 2_000_000
)

// -----------------------------------------------------------------------------

// SyntheticSource is the last tier. It never fails: every call returns a
// plausible series derived only from the ticker and the current date.
type SyntheticSource struct {
	Resampler *analysis.TimeSeriesResampler
	Logger    *logger.Logger
	now       func() time.Time
}

// -----------------------------------------------------------------------------

func NewSyntheticSource(log *logger.Logger) *SyntheticSource {
	return &SyntheticSource{
		Resampler: analysis.NewTimeSeriesResampler(time.UTC),
		Logger:    log,
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// -----------------------------------------------------------------------------

func (s *SyntheticSource) Source() models.MSourceTag {
	return models.SourceSynthetic
}

// -----------------------------------------------------------------------------

// Seed is the 64-bit FNV-1a hash of the canonical ticker.
func Seed(ticker string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	return int64(h.Sum64())
}

// -----------------------------------------------------------------------------

func (s *SyntheticSource) FetchPrice(ctx context.Context, ticker, timeframe, period string) models.MFetchResult {
	end := s.now().UTC().Truncate(24 * time.Hour)
	bars := s.Resampler.ResampleBars(GenerateDaily(ticker, models.PeriodStart(period, end), end), timeframe)

	s.Logger.Warning("Serving synthetic %s %s/%s (%d bars)", ticker, timeframe, period, len(bars))
	return models.MFetchResult{
		Kind: models.FetchOK,
		Series: models.MPriceSeries{
			Ticker:    ticker,
			Timeframe: timeframe,
			Period:    period,
			Bars:      bars,
			Source:    models.SourceSynthetic,
			FetchedAt: s.now().UTC(),
		},
	}
}

// -----------------------------------------------------------------------------

// GenerateDaily builds one bar per weekday in [start, end]. The output is a
// pure function of its arguments.
func GenerateDaily(ticker string, start, end time.Time) []models.MBar {
	rng := rand.New(rand.NewSource(Seed(ticker)))
	price := minStartPrice + rng.Float64()*startPriceRange
	baseVolume := minVolume + rng.Int63n(volumeRange)

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	var bars []models.MBar
	for !day.After(end) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			open := price
			ret := dailyDrift + dailyVolatility*rng.NormFloat64()
			closePrice := math.Max(0.01, open*math.Exp(ret))
			spread := math.Abs(rng.NormFloat64()) * dailyVolatility * 0.5
			high := math.Max(open, closePrice) * (1 + spread)
			low := math.Min(open, closePrice) * (1 - spread)
			volume := int64(float64(baseVolume) * (0.5 + rng.Float64()))

			bars = append(bars, models.MBar{
				Timestamp: day,
				Open:      round2(open),
				High:      round2(high),
				Low:       round2(low),
				Close:     round2(closePrice),
				Volume:    volume,
			})
			price = closePrice
		}
		day = day.AddDate(0, 0, 1)
	}

	// A period shorter than a weekend still gets one bar.
	if len(bars) == 0 {
		bars = append(bars, models.MBar{Timestamp: end, Open: round2(price), High: round2(price), Low: round2(price), Close: round2(price), Volume: baseVolume})
	}
	return bars
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// -----------------------------------------------------------------------------

// FetchFundamentals returns seeded but plausible ratios.
func (s *SyntheticSource) FetchFundamentals(ctx context.Context, ticker string) models.MFundamentalsResult {
	rng := rand.New(rand.NewSource(Seed(ticker) ^ 0x5eed))
	f := models.MFundamentals{
		Ticker:         ticker,
		Name:           null.StringFrom(ticker + " (synthetic)"),
		PERatio:        null.FloatFrom(round2(5 + rng.Float64()*35)),
		ProfitMargin:   null.FloatFrom(round2(-0.05 + rng.Float64()*0.35)),
		RevenueGrowth:  null.FloatFrom(round2(-0.10 + rng.Float64()*0.30)),
		EarningsGrowth: null.FloatFrom(round2(-0.15 + rng.Float64()*0.40)),
		Source:         models.SourceSynthetic,
		FetchedAt:      s.now().UTC(),
	}
	s.Logger.Warning("Serving synthetic fundamentals for %s", ticker)
	return models.MFundamentalsResult{Kind: models.FetchOK, Fundamentals: f}
}
