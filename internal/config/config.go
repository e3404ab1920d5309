package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Log        LogConfig
	Auth       AuthConfig
	MarketData MarketDataConfig
	Pricing    PricingConfig
	Redis      RedisConfig
	Scheduler  SchedulerConfig
	Ledger     LedgerConfig
	Referral   ReferralConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"5001"`
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Addr string // Combined host:port for convenience

	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string `env:"DB_PATH" envDefault:"./data/brokerage_ledger.db"`
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost"`
}

// LogConfig controls the slog handler built at startup.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// AuthConfig holds the keys used to authenticate callers.
//
// InternalAPIKey guards the /api/internal routes used by the identity-provider glue.
// TokenKey is a base64 fernet key used to sign user session tokens.
type AuthConfig struct {
	InternalAPIKey string        `env:"INTERNAL_API_KEY"`
	TokenKey       string        `env:"AUTH_TOKEN_KEY"`
	TokenTTL       time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
}

// MarketDataConfig configures the quote vendor client.
type MarketDataConfig struct {
	BaseURL string        `env:"MARKETDATA_BASE_URL" envDefault:"https://query1.finance.yahoo.com"`
	Timeout time.Duration `env:"MARKETDATA_TIMEOUT" envDefault:"3s"`
	Debug   bool          `env:"MARKETDATA_DEBUG" envDefault:"false"`
}

// PricingConfig configures the price lookup layer sitting in front of the vendor.
type PricingConfig struct {
	FreshTTL      time.Duration `env:"PRICING_FRESH_TTL" envDefault:"60s"`
	MaxWorkers    int           `env:"PRICING_MAX_WORKERS" envDefault:"5"`
	MaxTradeQuote time.Duration `env:"TRADE_MAX_QUOTE_AGE" envDefault:"15m"`
	// Store selects where last-known prices are kept: "sql" or "redis".
	Store string `env:"PRICING_STORE" envDefault:"sql"`
}

// RedisConfig is only used when PricingConfig.Store is "redis".
type RedisConfig struct {
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int           `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	PriceTTL time.Duration `env:"REDIS_PRICE_TTL" envDefault:"168h"`
}

// SchedulerConfig holds cron specs for background jobs.
type SchedulerConfig struct {
	Enabled          bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`
	PriceRefreshSpec string `env:"PRICE_REFRESH_SPEC" envDefault:"@every 5m"`
}

// LedgerConfig holds position accounting options.
type LedgerConfig struct {
	// SellCostPolicy is "sale_total" (default) or "average".
	SellCostPolicy string `env:"LEDGER_SELL_COST_POLICY" envDefault:"sale_total"`
}

// ReferralConfig holds referral program settings.
type ReferralConfig struct {
	// Bonus is a decimal amount credited to the referrer; "0" disables bonuses.
	Bonus string `env:"REFERRAL_BONUS" envDefault:"0"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.Ledger.SellCostPolicy != "sale_total" && config.Ledger.SellCostPolicy != "average" {
		return nil, fmt.Errorf("invalid LEDGER_SELL_COST_POLICY: %q", config.Ledger.SellCostPolicy)
	}
	if config.Pricing.Store != "sql" && config.Pricing.Store != "redis" {
		return nil, fmt.Errorf("invalid PRICING_STORE: %q", config.Pricing.Store)
	}
	if config.Pricing.MaxWorkers < 1 {
		config.Pricing.MaxWorkers = 1
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}
