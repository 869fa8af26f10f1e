package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"3001"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// SessionTTL is the staleness threshold after which the reaper evicts a
	// silent session. Completed sessions are retained for the same window
	// since completion counts as an update.
	SessionTTL time.Duration `env:"SESSION_TTL" default:"4h"`
	// ReaperInterval controls how often the stale-session sweep runs.
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" default:"30m"`

	MaxConnections       int           `env:"MAX_CONNECTIONS" default:"10000"`
	MaxClientsPerSession int           `env:"MAX_CLIENTS_PER_SESSION" default:"50"`
	WriteTimeout         time.Duration `env:"WS_WRITE_TIMEOUT" default:"5s"`
}

// Load reads configuration from the environment, with an optional .env file.
// DATABASE_URL and REDIS_URL are optional: the realtime core is self-contained
// in memory, and the durable store and event relay are attached only when
// configured.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", cfg.SessionTTL)
	}
	if cfg.ReaperInterval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be positive, got %v", cfg.ReaperInterval)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.MaxClientsPerSession <= 0 {
		return fmt.Errorf("MAX_CLIENTS_PER_SESSION must be positive, got %d", cfg.MaxClientsPerSession)
	}
	return nil
}
