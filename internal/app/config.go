package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (POS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Loyalty     LoyaltyConfig
	Payments    PaymentsConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// LoyaltyConfig controls the points program applied during settlement.
type LoyaltyConfig struct {
	Enabled bool `default:"true" usage:"Enable loyalty earn/redeem during settlement"`
	// EarnRate is points per dollar of eligible spend.
	EarnRate decimal.Decimal `default:"0.01" usage:"Loyalty points earned per dollar"`
	// PointValue is the dollar value one redeemed point offsets.
	PointValue decimal.Decimal `default:"0.05" usage:"Dollar value of one redeemed point" flag:"point-value"`
	// ExcludedSKUs lists product SKUs that never earn points.
	ExcludedSKUs []string `default:"WATER-500" usage:"Product SKUs excluded from point accrual" flag:"excluded-skus"`
}

// PaymentsConfig controls tender handling.
type PaymentsConfig struct {
	// CardFeeRate is the processing fee removed from card tips before
	// crediting staff payout.
	CardFeeRate decimal.Decimal `default:"0.03" usage:"Card processing fee rate applied to tips" flag:"card-fee-rate"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set POS_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names like DATABASE_URL and PORT to the application's
// POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
