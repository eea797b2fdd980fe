package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stock-screener/src/models"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the YAML file.
const (
	EnvDBType    = "SCREENER_DB_TYPE"
	EnvDBPath    = "SCREENER_DB_PATH"
	EnvDBDSN     = "SCREENER_DB_DSN"
	EnvRedisAddr = "SCREENER_REDIS_ADDR"
	EnvFinnhub   = "FINNHUB_API_KEY"
	EnvPort      = "SCREENER_PORT"
	EnvLogLevel  = "SCREENER_LOG_LEVEL"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// DefaultConfig returns a runnable single-node setup: SQLite cache, Yahoo
// primary, Finnhub secondary, Stockholm default universe.
func DefaultConfig() *Config {
	return &Config{MConfig: &models.MConfig{
		Name:     "stock-screener",
		Host:     "0.0.0.0",
		Port:     8080,
		LogLevel: "INFO",
		Storage: models.MStorageConfig{
			DBType:        "sqlite",
			DBPath:        "data/screener.db",
			RedisAddr:     "localhost:6379",
			FallbackDir:   "data/cache",
			RetentionDays: 30,
		},
		Network: models.MNetworkConfig{
			RequestTimeout:     10,
			MaxRetries:         2,
			ConcurrentRequests: 4,
			UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		},
		DataSource: models.MDataSourceConfig{
			ProviderTimeoutSeconds: 10,
			BatchDelayMillis:       500,
			BatchWorkers:           4,
			Sources: []models.MSourceConfig{
				{Name: "yahoo", Kind: "yahoo", Tier: "primary", BaseURL: "https://query1.finance.yahoo.com"},
				{Name: "finnhub", Kind: "finnhub", Tier: "secondary"},
			},
			Universe: []string{"VOLV-B.ST", "ERIC-B.ST", "ATCO-A.ST", "INVE-B.ST", "HM-B.ST"},
		},
		Cache: models.MCacheConfig{
			TradingHoursTTLMinutes: 240,
			FundamentalsTTLHours:   24,
			ServeStaleOnFailure:    true,
		},
		Market: models.MMarketConfig{
			DefaultExchange: "xnys",
		},
		Indicators: models.DefaultIndicatorConfig(),
		Scoring: models.MScoringConfig{
			MaxPERatio:        25,
			MinProfitMargin:   0.10,
			MinRevenueGrowth:  0.05,
			MinEarningsGrowth: 0.05,
			MinCriteriaPassed: 3,
			MinMetricsPresent: 2,
		},
		Scheduler: models.MSchedulerConfig{
			Enabled:  false,
			Schedule: "*/15 * * * *",
		},
	}}
}

// -----------------------------------------------------------------------------

// NewConfig reads configPath over the defaults, applies environment
// overrides and validates the result. An empty path uses the defaults only.
func NewConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		// 1. Read the YAML file content
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
		}

		// 2. Unmarshal over the defaults
		if err := yaml.Unmarshal(data, config.MConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	}

	// 3. Environment
	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides fields from the environment; lookup is os.LookupEnv in production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBType); ok && v != "" {
		c.Storage.DBType = strings.ToLower(v)
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Storage.DBPath = v
	}
	if v, ok := lookup(EnvDBDSN); ok && v != "" {
		c.Storage.DBConnectionString = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Storage.RedisAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvFinnhub); ok && v != "" {
		for i := range c.DataSource.Sources {
			if c.DataSource.Sources[i].Kind == "finnhub" && c.DataSource.Sources[i].APIKey == "" {
				c.DataSource.Sources[i].APIKey = v
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate runs the struct-tag rules and then the cross-field checks the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c.MConfig); err != nil {
		return err
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite", "file":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for %s", c.Storage.DBType)
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
	}

	// Validate DataSource configuration
	seen := make(map[string]bool)
	for _, src := range c.DataSource.Sources {
		if seen[src.Tier] {
			return fmt.Errorf("more than one source configured for tier '%s'", src.Tier)
		}
		seen[src.Tier] = true
	}

	// Validate Indicators
	ind := c.Indicators
	if ind.MACDFast >= ind.MACDSlow {
		return fmt.Errorf("macd fast period (%d) must be below slow period (%d)", ind.MACDFast, ind.MACDSlow)
	}
	if !(ind.SMAShort < ind.SMAMedium && ind.SMAMedium < ind.SMALong) {
		return fmt.Errorf("sma windows must increase: %d/%d/%d", ind.SMAShort, ind.SMAMedium, ind.SMALong)
	}

	// Validate Scoring
	if c.Scoring.MinCriteriaPassed > 4 {
		return fmt.Errorf("min criteria passed cannot exceed 4, got %d", c.Scoring.MinCriteriaPassed)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.DataSource.ProviderTimeoutSeconds) * time.Second
}

// -----------------------------------------------------------------------------

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.DataSource.BatchDelayMillis) * time.Millisecond
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
