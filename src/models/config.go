package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name" validate:"required"`
	Host       string            `yaml:"host" validate:"required"`
	Port       int               `yaml:"port" validate:"min=1025,max=65535"`
	LogLevel   string            `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARNING ERROR"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Cache      MCacheConfig      `yaml:"cache"`
	Market     MMarketConfig     `yaml:"market"`
	Indicators MIndicatorConfig  `yaml:"indicators"`
	Scoring    MScoringConfig    `yaml:"scoring"`
	Scheduler  MSchedulerConfig  `yaml:"scheduler"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" validate:"oneof=sqlite postgres redis file memory"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db" validate:"min=0"`
	FallbackDir        string `yaml:"fallback_dir"` // local-file store used when the relational one is down
	RetentionDays      int    `yaml:"retention_days" validate:"min=0"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout" validate:"gt=0"`
	MaxRetries         int      `yaml:"retries" validate:"min=0"`
	ConcurrentRequests int      `yaml:"concurrent_requests" validate:"gt=0"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	ProviderTimeoutSeconds int             `yaml:"provider_timeout_seconds" validate:"gt=0"`
	BatchDelayMillis       int             `yaml:"batch_delay_ms" validate:"min=0"`
	BatchWorkers           int             `yaml:"batch_workers" validate:"gt=0"`
	Sources                []MSourceConfig `yaml:"sources" validate:"dive"`
	Universe               []string        `yaml:"universe"`
}

type MSourceConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Kind    string `yaml:"kind" validate:"oneof=yahoo finnhub"`
	Tier    string `yaml:"tier" validate:"oneof=primary secondary"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // Optional
}

type MCacheConfig struct {
	TradingHoursTTLMinutes int  `yaml:"trading_hours_ttl_minutes" validate:"gt=0"`
	FundamentalsTTLHours   int  `yaml:"fundamentals_ttl_hours" validate:"gt=0"`
	ServeStaleOnFailure    bool `yaml:"serve_stale_on_failure"`
}

type MMarketConfig struct {
	DefaultExchange string              `yaml:"default_exchange"`
	ExtraHolidays   map[string][]string `yaml:"extra_holidays"` // MIC -> ["2006-01-02", ...]
}

type MScoringConfig struct {
	MaxPERatio        float64 `yaml:"max_pe_ratio" validate:"gt=0"`
	MinProfitMargin   float64 `yaml:"min_profit_margin"`
	MinRevenueGrowth  float64 `yaml:"min_revenue_growth"`
	MinEarningsGrowth float64 `yaml:"min_earnings_growth"`
	MinCriteriaPassed int     `yaml:"min_criteria_passed" validate:"min=1"`
	MinMetricsPresent int     `yaml:"min_metrics_present" validate:"min=1"`
}

type MSchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// GetLogLevel lets the logger read the configured level.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
