// Package config loads server and CLI configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/payouts.db"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// JWTSecret enables bearer token checks on the API. Empty disables them.
	JWTSecret string `env:"JWT_SECRET"`

	// RedisAddr selects the Redis lock. Empty means in-process locks.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// LockTTL bounds how long a crashed calculation can hold a show's lock.
	LockTTL time.Duration `env:"PAYOUT_LOCK_TTL" envDefault:"30s"`
}

// Load reads optional .env files and then parses the environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges env tags cannot express.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("PAYOUT_LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
