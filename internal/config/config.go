// Package config loads feed-server configuration from layered sources:
// built-in defaults, an optional YAML file, and KVIDEO_-prefixed
// environment variables, in rising precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full feed-server configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Catalog CatalogConfig `koanf:"catalog"`
	History HistoryConfig `koanf:"history"`
	Feed    FeedConfig    `koanf:"feed"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// SessionIdleTTL is how long an untouched feed session survives.
	SessionIdleTTL time.Duration `koanf:"session_idle_ttl"`

	// SweepInterval is how often expired sessions are collected.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// CatalogConfig holds upstream catalog client settings.
type CatalogConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	UserAgent      string        `koanf:"user_agent"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxConcurrency int           `koanf:"max_concurrency" validate:"min=1"`
}

// HistoryConfig selects and configures the watch-history backend.
type HistoryConfig struct {
	// Backend is one of "memory", "redis", "sqlite".
	Backend      string       `koanf:"backend" validate:"required,oneof=memory redis sqlite"`
	MaxPerViewer int          `koanf:"max_per_viewer" validate:"min=1"`
	Redis        RedisConfig  `koanf:"redis"`
	SQLite       SQLiteConfig `koanf:"sqlite"`
}

// RedisConfig holds Redis connection settings for the history store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// SQLiteConfig holds SQLite settings for the history store.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// FeedConfig holds feed engine and query generation settings.
type FeedConfig struct {
	MaxQueries   int           `koanf:"max_queries" validate:"min=1"`
	MaxPageStart int           `koanf:"max_page_start" validate:"min=1"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	HistoryLimit int           `koanf:"history_limit" validate:"min=1"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

// defaultConfig returns the built-in defaults. They are applied first and
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionIdleTTL:  30 * time.Minute,
			SweepInterval:   5 * time.Minute,
		},
		Catalog: CatalogConfig{
			BaseURL:        "",
			UserAgent:      "KVideo-Feed/1.0",
			Timeout:        10 * time.Second,
			MaxConcurrency: 4,
		},
		History: HistoryConfig{
			Backend:      "memory",
			MaxPerViewer: 200,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				DB:   0,
			},
			SQLite: SQLiteConfig{
				Path: "data/kvideo-history.db",
			},
		},
		Feed: FeedConfig{
			MaxQueries:   3,
			MaxPageStart: 36,
			CacheTTL:     30 * time.Minute,
			HistoryLimit: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.History.Backend {
	case "redis":
		if c.History.Redis.Addr == "" {
			return fmt.Errorf("history.redis.addr is required for the redis backend")
		}
	case "sqlite":
		if c.History.SQLite.Path == "" {
			return fmt.Errorf("history.sqlite.path is required for the sqlite backend")
		}
	}

	return nil
}
