package interfaces

import (
	"context"
	"stock-screener/src/models"
)

// -----------------------------------------------------------------------------
// IPriceProvider is one tier of the retrieval chain (live API or synthetic).
// -----------------------------------------------------------------------------

type IPriceProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// Source is the tag attached to results produced by this provider.
	Source() models.MSourceTag

	// -----------------------------------------------------------------------------

	// FetchPrice returns OHLCV history for a canonical ticker.
	// Failures are reported through the result Kind, never by panicking.
	FetchPrice(ctx context.Context, ticker, timeframe, period string) models.MFetchResult

	// -----------------------------------------------------------------------------

	// FetchFundamentals returns the latest fundamentals snapshot.
	FetchFundamentals(ctx context.Context, ticker string) models.MFundamentalsResult
}
