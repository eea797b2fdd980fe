package models

import (
	"fmt"
	"time"
)

// Timeframe and period used for fundamentals rows in the shared cache table.
const (
	FundamentalsTimeframe = "fundamentals"
	FundamentalsPeriod    = "snapshot"
)

// MCacheKey identifies at most one cache row.
type MCacheKey struct {
	Ticker    string     `json:"ticker"`
	Timeframe string     `json:"timeframe"`
	Period    string     `json:"period"`
	Source    MSourceTag `json:"source"`
}

// -----------------------------------------------------------------------------

func (k MCacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Ticker, k.Timeframe, k.Period, k.Source)
}

// -----------------------------------------------------------------------------

// FundamentalsKey returns the cache key of a fundamentals snapshot.
func FundamentalsKey(ticker string, source MSourceTag) MCacheKey {
	return MCacheKey{Ticker: ticker, Timeframe: FundamentalsTimeframe, Period: FundamentalsPeriod, Source: source}
}

// MCacheRecord is a serialized series or fundamentals blob with its capture time.
type MCacheRecord struct {
	Key      MCacheKey `json:"key"`
	Blob     []byte    `json:"blob"`
	CachedAt time.Time `json:"cached_at"`
}
