package models

import "github.com/guregu/null/v6"

// MVerdict is the three-way technical classification of a tech score.
type MVerdict string

const (
	VerdictBullish MVerdict = "bullish"
	VerdictNeutral MVerdict = "neutral"
	VerdictBearish MVerdict = "bearish"
)

// MAction is the final combined recommendation.
type MAction string

const (
	ActionBuy  MAction = "buy"
	ActionHold MAction = "hold"
	ActionSell MAction = "sell"
)

// MSignalSet is derived from the latest defined values of an MIndicatorSet.
type MSignalSet struct {
	Ticker           string     `json:"ticker"`
	LastClose        float64    `json:"last_close"`
	LastRSI          null.Float `json:"last_rsi"`
	AboveSMAShort    bool       `json:"above_sma_short"`
	AboveSMAMedium   bool       `json:"above_sma_medium"`
	AboveSMALong     bool       `json:"above_sma_long"`
	GoldenCross      bool       `json:"golden_cross"`
	PrimaryTrend     bool       `json:"primary_trend"`
	RSIOverbought    bool       `json:"rsi_overbought"`
	RSIOversold      bool       `json:"rsi_oversold"`
	RSIHealthy       bool       `json:"rsi_healthy"`
	MACDBullishCross bool       `json:"macd_bullish"`
	MACDBearishCross bool       `json:"macd_bearish"`
	HigherLows       bool       `json:"higher_lows"`
	Near52WeekHigh   bool       `json:"near_52w_high"`
	BreakoutUp       bool       `json:"breakout_up"`
	VolumeSurge      bool       `json:"volume_surge"`
	TechScore        float64    `json:"tech_score"`
	Verdict          MVerdict   `json:"verdict"`
}

// MScreenResult is one screener row.
type MScreenResult struct {
	Ticker           string     `json:"ticker"`
	Source           MSourceTag `json:"source"`
	LastClose        float64    `json:"last_close"`
	TechScore        float64    `json:"tech_score"`
	Verdict          MVerdict   `json:"verdict"`
	FundamentalsPass bool       `json:"fundamentals_pass"`
	Action           MAction    `json:"action"`
	Error            string     `json:"error,omitempty"`
}

// MScreenSummary aggregates a batch run.
type MScreenSummary struct {
	Results   []MScreenResult    `json:"results"`
	Total     int                `json:"total"`
	Failed    int                `json:"failed"`
	BySource  map[MSourceTag]int `json:"by_source"`
	ByAction  map[MAction]int    `json:"by_action"`
	MeanScore float64            `json:"mean_score"`
	StdScore  float64            `json:"std_score"`
	StartedAt int64              `json:"started_at"`
	Elapsed   float64            `json:"elapsed_seconds"`
}

// MTickerAnalysis is the full single-ticker pipeline output.
type MTickerAnalysis struct {
	Ticker              string               `json:"ticker"`
	Timeframe           string               `json:"timeframe"`
	Period              string               `json:"period"`
	Source              MSourceTag           `json:"source"`
	Stale               bool                 `json:"stale,omitempty"`
	Bars                int                  `json:"bars"`
	Signals             MSignalSet           `json:"signals"`
	Fundamentals        MFundamentals        `json:"fundamentals"`
	FundamentalsVerdict MFundamentalsVerdict `json:"fundamentals_verdict"`
	Action              MAction              `json:"action"`
}

// -----------------------------------------------------------------------------

func (a MTickerAnalysis) ScreenResult() MScreenResult {
	return MScreenResult{
		Ticker:           a.Ticker,
		Source:           a.Source,
		LastClose:        a.Signals.LastClose,
		TechScore:        a.Signals.TechScore,
		Verdict:          a.Signals.Verdict,
		FundamentalsPass: a.FundamentalsVerdict.Pass,
		Action:           a.Action,
	}
}
