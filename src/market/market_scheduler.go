package market

import (
	"stock-screener/src/logger"
	"sync"
	"time"
)

// MarketScheduler tracks which exchanges a ticker universe trades on.
type MarketScheduler struct {
	Calendar  *Calendar
	Exchanges map[string]*Exchange // ticker -> exchange
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(cal *Calendar, tickers []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendar:  cal,
		Exchanges: make(map[string]*Exchange),
		Logger:    l,
	}
	ms.UpdateTickers(tickers)
	return ms
}

// -----------------------------------------------------------------------------

// UpdateTickers replaces the tracked universe.
func (ms *MarketScheduler) UpdateTickers(tickers []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Exchanges = make(map[string]*Exchange, len(tickers))
	unique := make(map[*Exchange]bool)
	for _, t := range tickers {
		ex := ms.Calendar.ForTicker(t)
		ms.Exchanges[t] = ex
		unique[ex] = true
	}

	ms.Logger.Info("MarketScheduler: Mapped %d tickers to %d unique exchanges.", len(tickers), len(unique))
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked exchange is open at now
func (ms *MarketScheduler) AnyMarketOpen(now time.Time) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	seen := make(map[*Exchange]bool)
	for _, ex := range ms.Exchanges {
		if seen[ex] {
			continue
		}
		seen[ex] = true
		if ex.IsOpen(now) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// OpenTickers returns the tracked tickers whose exchange is open at now.
func (ms *MarketScheduler) OpenTickers(now time.Time) []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []string
	for t, ex := range ms.Exchanges {
		if ex.IsOpen(now) {
			out = append(out, t)
		}
	}
	return out
}
