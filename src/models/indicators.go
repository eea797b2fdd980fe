package models

// MIndicatorConfig holds the windows used by the indicator engine.
type MIndicatorConfig struct {
	SMAShort          int     `yaml:"sma_short" validate:"gt=0"`
	SMAMedium         int     `yaml:"sma_medium" validate:"gt=0"`
	SMALong           int     `yaml:"sma_long" validate:"gt=0"`
	RSIPeriod         int     `yaml:"rsi_period" validate:"gt=1"`
	MACDFast          int     `yaml:"macd_fast" validate:"gt=0"`
	MACDSlow          int     `yaml:"macd_slow" validate:"gt=0"`
	MACDSignal        int     `yaml:"macd_signal" validate:"gt=0"`
	BollingerPeriod   int     `yaml:"bollinger_period" validate:"gt=1"`
	BollingerK        float64 `yaml:"bollinger_k" validate:"gt=0"`
	ATRPeriod         int     `yaml:"atr_period" validate:"gt=0"`
	PatternLookback   int     `yaml:"pattern_lookback" validate:"gt=0"`
	NearExtremePct    float64 `yaml:"near_extreme_pct" validate:"gt=0"`
	BreakoutWindow    int     `yaml:"breakout_window" validate:"gt=1"`
	VolumeSurgeFactor float64 `yaml:"volume_surge_factor" validate:"gt=0"`
}

// DefaultIndicatorConfig returns the classic 20/50/200, RSI 14, MACD 12/26/9, BB 20/2 setup.
func DefaultIndicatorConfig() MIndicatorConfig {
	return MIndicatorConfig{
		SMAShort:          20,
		SMAMedium:         50,
		SMALong:           200,
		RSIPeriod:         14,
		MACDFast:          12,
		MACDSlow:          26,
		MACDSignal:        9,
		BollingerPeriod:   20,
		BollingerK:        2.0,
		ATRPeriod:         14,
		PatternLookback:   252,
		NearExtremePct:    5.0,
		BreakoutWindow:    20,
		VolumeSurgeFactor: 1.5,
	}
}

// MPatternFlags are the pattern and breakout detector outputs.
type MPatternFlags struct {
	HigherLows     bool `json:"higher_lows"`
	LowerHighs     bool `json:"lower_highs"`
	Near52WeekHigh bool `json:"near_52w_high"`
	Near52WeekLow  bool `json:"near_52w_low"`
	BreakoutUp     bool `json:"breakout_up"`
	BreakoutDown   bool `json:"breakout_down"`
	VolumeSurge    bool `json:"volume_surge"`
}

// MIndicatorSet is aligned with the source series. NaN marks undefined entries.
type MIndicatorSet struct {
	Ticker         string        `json:"ticker"`
	Length         int           `json:"length"`
	Close          MSeries       `json:"close"`
	SMAShort       MSeries       `json:"sma_short"`
	SMAMedium      MSeries       `json:"sma_medium"`
	SMALong        MSeries       `json:"sma_long"`
	RSI            MSeries       `json:"rsi"`
	MACD           MSeries       `json:"macd"`
	MACDSignal     MSeries       `json:"macd_signal"`
	MACDHist       MSeries       `json:"macd_hist"`
	BollingerUpper MSeries       `json:"bollinger_upper"`
	BollingerMid   MSeries       `json:"bollinger_middle"`
	BollingerLower MSeries       `json:"bollinger_lower"`
	ATR            MSeries       `json:"atr"`
	VolumeAvg      MSeries       `json:"volume_avg"`
	High52Week     float64       `json:"high_52w"`
	Low52Week      float64       `json:"low_52w"`
	LastVolume     float64       `json:"last_volume"`
	Patterns       MPatternFlags `json:"patterns"`
}
