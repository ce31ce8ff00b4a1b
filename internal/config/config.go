package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr                 string `env:"HTTP_ADDR"                  envDefault:":8080"`
	DatabaseURL              string `env:"DATABASE_URL"`
	AppEnv                   string `env:"APP_ENV"                    envDefault:"production"`
	LogLevel                 string `env:"LOG_LEVEL"                  envDefault:"info"`
	PublicBaseURL            string `env:"PUBLIC_BASE_URL"            envDefault:"http://localhost:8080"`
	WebhookSecret            string `env:"WEBHOOK_SECRET"`
	GameServerTimeoutSeconds int    `env:"GAMESERVER_TIMEOUT_SECONDS" envDefault:"5"`
	MetricsEnabled           bool   `env:"METRICS_ENABLED"            envDefault:"true"`
}

// Load reads envFile into the process environment (a missing file is fine)
// and parses the result.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.GameServerTimeoutSeconds <= 0 {
		return Config{}, fmt.Errorf("GAMESERVER_TIMEOUT_SECONDS must be positive, got %d", cfg.GameServerTimeoutSeconds)
	}
	return cfg, nil
}

func (c Config) GameServerTimeout() time.Duration {
	return time.Duration(c.GameServerTimeoutSeconds) * time.Second
}

// UseMemoryStore reports whether no database is configured.
func (c Config) UseMemoryStore() bool { return c.DatabaseURL == "" }
