package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"signupd/pkg/tz"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/signupd?sslmode=disable"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	// Optional sinks: an empty value turns the sink off.
	RedisURL       string `env:"REDIS_URL"`
	RedisPrefix    string `env:"REDIS_CHANNEL_PREFIX" envDefault:"signups"`
	AMQPURL        string `env:"AMQP_URL"`
	AMQPEmailQueue string `env:"AMQP_EMAIL_QUEUE" envDefault:"signup.notifications.email"`
	DiscordToken   string `env:"DISCORD_TOKEN"`
	NotifyAsync    bool   `env:"NOTIFY_ASYNC" envDefault:"true"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`
	Timezone      string `env:"TIMEZONE" envDefault:"UTC"`

	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepConcurrency int           `env:"SWEEP_CONCURRENCY" envDefault:"4"`
	SweepBatchSize   int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`

	OfferWindow      time.Duration `env:"OFFER_WINDOW" envDefault:"12h"`
	ResignupDebounce time.Duration `env:"RESIGNUP_DEBOUNCE" envDefault:"5s"`
	TxMaxAttempts    int           `env:"TX_MAX_ATTEMPTS" envDefault:"3"`
	TxRetryBaseDelay time.Duration `env:"TX_RETRY_BASE_DELAY" envDefault:"100ms"`
}

// Load reads an optional .env file, then the environment, and validates the
// result.
func Load() (*Config, error) {
	// .env is optional when variables come from the environment (Docker, CI...).
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	} else if parsed, err := url.Parse(c.DatabaseURL); err != nil {
		errs = append(errs, fmt.Errorf("DATABASE_URL is invalid: %w", err))
	} else if parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL %q: missing scheme or host", c.DatabaseURL))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if _, err := tz.Load(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	positive := []struct {
		name string
		ok   bool
	}{
		{"SWEEP_INTERVAL", c.SweepInterval > 0},
		{"SWEEP_CONCURRENCY", c.SweepConcurrency > 0},
		{"SWEEP_BATCH_SIZE", c.SweepBatchSize > 0},
		{"OFFER_WINDOW", c.OfferWindow > 0},
		{"RESIGNUP_DEBOUNCE", c.ResignupDebounce >= 0},
		{"TX_MAX_ATTEMPTS", c.TxMaxAttempts > 0},
		{"TX_RETRY_BASE_DELAY", c.TxRetryBaseDelay >= 0},
		{"DB_MAX_CONNS", c.DBMaxConns > 0},
	}
	for _, p := range positive {
		if !p.ok {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
