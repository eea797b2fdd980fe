package models

import "time"

// MSourceTag records where a price or fundamentals result came from.
type MSourceTag string

const (
	SourceCache     MSourceTag = "cache"
	SourcePrimary   MSourceTag = "primary"
	SourceSecondary MSourceTag = "secondary"
	SourceSynthetic MSourceTag = "synthetic"
)

// MBar is one OHLCV interval.
type MBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// MPriceSeries is an ascending sequence of bars for one (ticker, timeframe, period).
type MPriceSeries struct {
	Ticker    string     `json:"ticker"`
	Timeframe string     `json:"timeframe"`
	Period    string     `json:"period"`
	Bars      []MBar     `json:"bars"`
	Source    MSourceTag `json:"source"`
	Stale     bool       `json:"stale,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// -----------------------------------------------------------------------------

func (s MPriceSeries) Len() int {
	return len(s.Bars)
}

// -----------------------------------------------------------------------------

// Closes returns the close column.
func (s MPriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// -----------------------------------------------------------------------------

func (s MPriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// -----------------------------------------------------------------------------

func (s MPriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// -----------------------------------------------------------------------------

func (s MPriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// -----------------------------------------------------------------------------

// Last returns the most recent bar and false when the series is empty.
func (s MPriceSeries) Last() (MBar, bool) {
	if len(s.Bars) == 0 {
		return MBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// -----------------------------------------------------------------------------

// SourceForTier maps a configured provider tier to its result tag.
func SourceForTier(tier string) MSourceTag {
	if tier == "secondary" {
		return SourceSecondary
	}
	return SourcePrimary
}
