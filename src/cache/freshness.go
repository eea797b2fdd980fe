package cache

import (
	"time"

	"stock-screener/src/market"
	"stock-screener/src/models"
)

// Default time-to-live values.
const (
	DefaultTradingHoursTTL = 4 * time.Hour
	DefaultFundamentalsTTL = 24 * time.Hour
)

// -----------------------------------------------------------------------------

// ShouldRefresh decides whether a price row cached at cachedAt must be refetched.
// While the exchange is open the row expires after ttl. While it is closed the
// row stays fresh as long as it was captured at or after the last close.
func ShouldRefresh(cachedAt time.Time, ttl time.Duration, now time.Time, ex *market.Exchange) bool {
	if ex.IsOpen(now) {
		return now.Sub(cachedAt) > ttl
	}
	return cachedAt.Before(ex.LastClose(now))
}

// -----------------------------------------------------------------------------

// FundamentalsStale applies a flat TTL regardless of market state.
func FundamentalsStale(cachedAt time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(cachedAt) > ttl
}

// -----------------------------------------------------------------------------

// Policy binds the configured TTLs to a calendar.
type Policy struct {
	Calendar        *market.Calendar
	TradingHoursTTL time.Duration
	FundamentalsTTL time.Duration
	Now             func() time.Time
}

// -----------------------------------------------------------------------------

func NewPolicy(cal *market.Calendar, cfg models.MCacheConfig) *Policy {
	p := &Policy{
		Calendar:        cal,
		TradingHoursTTL: time.Duration(cfg.TradingHoursTTLMinutes) * time.Minute,
		FundamentalsTTL: time.Duration(cfg.FundamentalsTTLHours) * time.Hour,
		Now:             time.Now,
	}
	if p.TradingHoursTTL <= 0 {
		p.TradingHoursTTL = DefaultTradingHoursTTL
	}
	if p.FundamentalsTTL <= 0 {
		p.FundamentalsTTL = DefaultFundamentalsTTL
	}
	return p
}

// -----------------------------------------------------------------------------

// IsFresh reports whether rec can be served without refetching.
func (p *Policy) IsFresh(rec models.MCacheRecord) bool {
	now := p.Now()
	if rec.Key.Timeframe == models.FundamentalsTimeframe {
		return !FundamentalsStale(rec.CachedAt, p.FundamentalsTTL, now)
	}
	return !ShouldRefresh(rec.CachedAt, p.TradingHoursTTL, now, p.Calendar.ForTicker(rec.Key.Ticker))
}
