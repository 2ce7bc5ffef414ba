// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrInvalidPort       = errors.New("invalid port: must be between 1 and 65535")
	ErrInvalidWorkers    = errors.New("invalid worker count: must be positive")
	ErrInvalidMaxResults = errors.New("invalid search max results: must be between 1 and 50")
	ErrInvalidFetchCount = errors.New("invalid search fetch count: must be at least max results")
)

// Config holds all runtime settings.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8000"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Workers   int `env:"WORKER_COUNT" envDefault:"4"`
	QueueSize int `env:"WORKER_QUEUE_SIZE" envDefault:"64"`

	YtdlpPath string `env:"YTDLP_PATH"`
	DataDir   string `env:"DATA_DIR"`

	SearchFetchCount  int           `env:"SEARCH_FETCH_COUNT" envDefault:"12"`
	SearchMaxResults  int           `env:"SEARCH_MAX_RESULTS" envDefault:"6"`
	SearchMaxDuration int           `env:"SEARCH_MAX_DURATION_SECONDS" envDefault:"600"`
	SearchMinInterval time.Duration `env:"SEARCH_MIN_INTERVAL" envDefault:"1s"`

	ResolveTimeout    time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"90s"`
	StreamMinInterval time.Duration `env:"STREAM_MIN_INTERVAL" envDefault:"3s"`
}

// Load reads the configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func Validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return ErrInvalidPort
	}
	if cfg.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if cfg.SearchMaxResults < 1 || cfg.SearchMaxResults > 50 {
		return ErrInvalidMaxResults
	}
	if cfg.SearchFetchCount < cfg.SearchMaxResults {
		return ErrInvalidFetchCount
	}
	return nil
}

// Addr returns the listen address; the service binds all interfaces.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".musicapi")
	}
	return "."
}
