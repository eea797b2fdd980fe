package interfaces

import (
	"context"
	"stock-screener/src/models"
)

// -----------------------------------------------------------------------------
// IStockDataProvider is the cache-aware retrieval surface used by analysis.
// -----------------------------------------------------------------------------

type IStockDataProvider interface {

	// GetStockData returns a non-empty series for any valid request. Only
	// validation failures are returned as errors.
	GetStockData(ctx context.Context, ticker, timeframe, period string) (models.MPriceSeries, error)

	// -----------------------------------------------------------------------------

	// GetFundamentals returns the latest snapshot, possibly synthetic.
	GetFundamentals(ctx context.Context, ticker string) (models.MFundamentals, error)
}

// -----------------------------------------------------------------------------
// ITickerAnalyzer runs the whole pipeline for one ticker.
// -----------------------------------------------------------------------------

type ITickerAnalyzer interface {
	AnalyzeTicker(ctx context.Context, ticker, timeframe, period string) (models.MTickerAnalysis, error)
}

// -----------------------------------------------------------------------------
// IAnalysisFacade is what the HTTP and CLI surfaces call.
// -----------------------------------------------------------------------------

type IAnalysisFacade interface {
	IStockDataProvider
	ITickerAnalyzer

	CalculateAllIndicators(series models.MPriceSeries) models.MIndicatorSet

	// -----------------------------------------------------------------------------

	GenerateTechnicalSignals(ind models.MIndicatorSet) models.MSignalSet

	// -----------------------------------------------------------------------------

	AnalyzeFundamentals(f models.MFundamentals) models.MFundamentalsVerdict
}

// -----------------------------------------------------------------------------
// IScreener runs the pipeline over many tickers.
// -----------------------------------------------------------------------------

type IScreener interface {
	Run(ctx context.Context, tickers []string, timeframe, period string) (models.MScreenSummary, error)
}

// -----------------------------------------------------------------------------
// IHealthReporter exposes cache backend state for health checks.
// -----------------------------------------------------------------------------

type IHealthReporter interface {
	StoreName() string
	ErrorCounts() map[string]int
}

// -----------------------------------------------------------------------------
// IWatchlistPublisher receives screener results for websocket subscribers.
// -----------------------------------------------------------------------------

type IWatchlistPublisher interface {
	Publish(summary models.MScreenSummary)
}
