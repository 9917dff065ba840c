// Package config loads lander settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/aretw0/lander/internal/logging"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the process settings. Command-line flags override these.
type Config struct {
	Addr      string `env:"LANDER_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LANDER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LANDER_LOG_FORMAT" envDefault:"text"`

	// ScriptsDir serves funnels from disk instead of the embedded set.
	ScriptsDir string `env:"LANDER_SCRIPTS_DIR"`
	// RedisURL serves funnels published with "lander push" from Redis.
	RedisURL string `env:"LANDER_REDIS_URL"`

	IdleTTL      time.Duration `env:"LANDER_IDLE_TTL" envDefault:"30m"`
	MaxSessions  int           `env:"LANDER_MAX_SESSIONS" envDefault:"1000"`
	DefaultPhone string        `env:"LANDER_DEFAULT_PHONE"`
	MCPPort      int           `env:"LANDER_MCP_PORT" envDefault:"8081"`

	// ExternalTicks lets POST /sessions/{id}/tick drive the countdown instead of the server clock.
	ExternalTicks bool `env:"LANDER_EXTERNAL_TICKS"`
}

// Load reads the given dotenv files (".env" when none are named), then parses the
// environment. Missing dotenv files are ignored. Variables already set win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q (want text or json)", c.LogFormat))
	}
	if c.IdleTTL < 0 {
		errs = append(errs, fmt.Errorf("idle ttl must not be negative, got %s", c.IdleTTL))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("max sessions must not be negative, got %d", c.MaxSessions))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}
