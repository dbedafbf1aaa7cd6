// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config is built once at startup and handed to every constructor that needs it.
// Nothing below main reads the environment directly.
type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	DatabaseURL    string   `env:"DATABASE_URL,required"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	PublicBaseURL  string   `env:"PUBLIC_BASE_URL"`
	OperatorToken  string   `env:"OPERATOR_TOKEN"`

	SideShift  SideShiftConfig
	Settlement SettlementConfig

	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"15s"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	RedisURL       string        `env:"REDIS_URL"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	R2 R2Config
}

// SideShiftConfig holds the swap provider credentials.
type SideShiftConfig struct {
	BaseURL     string `env:"SIDESHIFT_API_URL" envDefault:"https://sideshift.ai/api/v2"`
	Secret      string `env:"SIDESHIFT_SECRET,required"`
	AffiliateID string `env:"SIDESHIFT_AFFILIATE_ID,required"`
}

// SettlementConfig is the fixed intermediary asset every deposit converts into.
type SettlementConfig struct {
	Coin    string `env:"SETTLEMENT_COIN" envDefault:"USDT"`
	Network string `env:"SETTLEMENT_NETWORK" envDefault:"tron"`
	Address string `env:"SETTLEMENT_ADDRESS,required"`
}

// R2Config enables claim receipt archiving when fully populated.
type R2Config struct {
	AccountID       string `env:"R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
}

// Enabled reports whether every R2 field is set.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// Load reads an optional .env file and parses the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, reading environment variables directly")
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Settlement.Address) == "" {
		return errors.New("config: SETTLEMENT_ADDRESS must not be empty")
	}
	if strings.TrimSpace(c.Settlement.Coin) == "" || strings.TrimSpace(c.Settlement.Network) == "" {
		return errors.New("config: settlement coin and network must not be empty")
	}
	if c.ProviderTimeout <= 0 || c.StoreTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	if c.IdempotencyTTL <= 0 {
		return errors.New("config: IDEMPOTENCY_TTL must be positive")
	}
	return nil
}
