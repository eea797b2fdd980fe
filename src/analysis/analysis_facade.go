package analysis

import (
	"context"

	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/models"
	"stock-screener/src/signals"
)

// AnalysisFacade is the single entry point consumers call: data retrieval,
// indicators, signals and the final action.
type AnalysisFacade struct {
	Config   *models.MConfig
	Data     interfaces.IStockDataProvider
	Analyzer interfaces.IFundamentalsAnalyzer
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, data interfaces.IStockDataProvider, log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{
		Config:   cfg,
		Data:     data,
		Analyzer: signals.NewFundamentalsAnalyzer(cfg.Scoring),
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) GetStockData(ctx context.Context, ticker, timeframe, period string) (models.MPriceSeries, error) {
	return a.Data.GetStockData(ctx, ticker, timeframe, period)
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) GetFundamentals(ctx context.Context, ticker string) (models.MFundamentals, error) {
	return a.Data.GetFundamentals(ctx, ticker)
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) CalculateAllIndicators(series models.MPriceSeries) models.MIndicatorSet {
	return CalculateAllIndicators(series, a.Config.Indicators)
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) GenerateTechnicalSignals(ind models.MIndicatorSet) models.MSignalSet {
	return signals.GenerateTechnicalSignals(ind)
}

// -----------------------------------------------------------------------------

func (a *AnalysisFacade) AnalyzeFundamentals(f models.MFundamentals) models.MFundamentalsVerdict {
	return a.Analyzer.Analyze(f)
}

// -----------------------------------------------------------------------------

// AnalyzeTicker runs retrieval, indicators, signals and fundamentals for one
// ticker. Missing fundamentals count as a failed fundamentals check, never as
// an error.
func (a *AnalysisFacade) AnalyzeTicker(ctx context.Context, ticker, timeframe, period string) (models.MTickerAnalysis, error) {
	series, err := a.GetStockData(ctx, ticker, timeframe, period)
	if err != nil {
		return models.MTickerAnalysis{}, err
	}

	ind := a.CalculateAllIndicators(series)
	sig := a.GenerateTechnicalSignals(ind)

	out := models.MTickerAnalysis{
		Ticker:    series.Ticker,
		Timeframe: series.Timeframe,
		Period:    series.Period,
		Source:    series.Source,
		Stale:     series.Stale,
		Bars:      series.Len(),
		Signals:   sig,
	}

	fund, err := a.GetFundamentals(ctx, series.Ticker)
	if err != nil {
		a.Logger.Warning("Fundamentals unavailable for %s: %v", series.Ticker, err)
		fund = models.MFundamentals{Ticker: series.Ticker}
	}
	out.Fundamentals = fund
	out.FundamentalsVerdict = a.AnalyzeFundamentals(fund)
	out.Action = signals.FinalAction(sig.TechScore, sig.PrimaryTrend, out.FundamentalsVerdict.Pass)

	a.Logger.Debug("%s: score=%.0f verdict=%s action=%s source=%s", out.Ticker, sig.TechScore, sig.Verdict, out.Action, out.Source)
	return out, nil
}
