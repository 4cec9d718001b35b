// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server configures the simulation host (cmd/earthsim).
type Server struct {
	Port         int           `env:"EARTHSIM_PORT" envDefault:"8080"`
	TickInterval time.Duration `env:"EARTHSIM_TICK_INTERVAL" envDefault:"200ms"`
	AdminKey     string        `env:"EARTHSIM_ADMIN_KEY"`
	CORSOrigins  []string      `env:"EARTHSIM_CORS_ORIGINS" envSeparator:","`

	// Empty DBPath disables checkpointing.
	DBPath          string        `env:"EARTHSIM_DB_PATH"`
	CheckpointEvery time.Duration `env:"EARTHSIM_CHECKPOINT_EVERY" envDefault:"1m"`

	Noise string `env:"EARTHSIM_NOISE" envDefault:"seeded"`
	Seed  int64  `env:"EARTHSIM_SEED" envDefault:"42"`

	Lang        string `env:"EARTHSIM_LANG" envDefault:"en"`
	LogLevel    string `env:"EARTHSIM_LOG_LEVEL" envDefault:"info"`
	ReportEvery uint64 `env:"EARTHSIM_REPORT_EVERY" envDefault:"300"`

	// Event requests allowed per client per minute on the HTTP API.
	EventRate int `env:"EARTHSIM_EVENT_RATE" envDefault:"120"`
	// Key event limits by X-Forwarded-For; set only behind a reverse proxy.
	TrustProxy bool `env:"EARTHSIM_TRUST_PROXY"`
}

// Client configures the command-line controller (cmd/earthctl).
type Client struct {
	APIURL   string        `env:"EARTHCTL_API_URL" envDefault:"http://localhost:8080"`
	AdminKey string        `env:"EARTHCTL_ADMIN_KEY"`
	Timeout  time.Duration `env:"EARTHCTL_TIMEOUT" envDefault:"10s"`
	Lang     string        `env:"EARTHCTL_LANG"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer parses and validates the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.TickInterval <= 0 {
		return Server{}, fmt.Errorf("EARTHSIM_TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Server{}, fmt.Errorf("EARTHSIM_PORT out of range: %d", cfg.Port)
	}
	if cfg.EventRate <= 0 {
		return Server{}, fmt.Errorf("EARTHSIM_EVENT_RATE must be positive, got %d", cfg.EventRate)
	}
	return cfg, nil
}

// LoadClient parses the controller configuration.
func LoadClient() (Client, error) {
	var cfg Client
	if err := ParseEnv(&cfg); err != nil {
		return Client{}, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, nil
}

// Level maps a level name to a slog level. Unknown names mean info.
func Level(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
