package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// MFundamentals is a per-ticker snapshot. Every metric may be absent.
type MFundamentals struct {
	Ticker         string      `json:"ticker"`
	Name           null.String `json:"name"`
	Currency       null.String `json:"currency"`
	Sector         null.String `json:"sector"`
	PERatio        null.Float  `json:"pe_ratio"`
	ProfitMargin   null.Float  `json:"profit_margin"`
	RevenueGrowth  null.Float  `json:"revenue_growth"`
	EarningsGrowth null.Float  `json:"earnings_growth"`
	BookValue      null.Float  `json:"book_value"`
	MarketCap      null.Float  `json:"market_cap"`
	DividendYield  null.Float  `json:"dividend_yield"`
	Source         MSourceTag  `json:"source"`
	Stale          bool        `json:"stale,omitempty"`
	FetchedAt      time.Time   `json:"fetched_at"`
}

// -----------------------------------------------------------------------------

// MetricCount returns how many numeric metrics are present.
func (f MFundamentals) MetricCount() int {
	n := 0
	for _, v := range []null.Float{f.PERatio, f.ProfitMargin, f.RevenueGrowth, f.EarningsGrowth, f.BookValue, f.MarketCap, f.DividendYield} {
		if v.Valid {
			n++
		}
	}
	return n
}

// MCriterion is the outcome of one fundamentals threshold check.
type MCriterion struct {
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold string  `json:"threshold"`
	Passed    bool    `json:"passed"`
}

// MFundamentalsVerdict is produced by the fundamentals analysis collaborator.
type MFundamentalsVerdict struct {
	Ticker    string       `json:"ticker"`
	Pass      bool         `json:"pass"`
	Passed    int          `json:"passed"`
	Evaluated int          `json:"evaluated"`
	Criteria  []MCriterion `json:"criteria"`
}
