// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Snapshot cache operations (hit/miss, key, age)
//   - Per-source fetch results (items returned, duplicates skipped)
//   - Interleave rounds and generation checks
//
// Info: Normal operation events
//   - Feed loads (initial and incremental)
//   - Snapshot reuse and refresh
//   - Source recovery after cooldown
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Source fetch failures (degraded to empty page)
//   - Source cooldown activation
//   - History store errors (fallback to empty history)
//
// Error: Error conditions requiring attention
//   - Feed load failures (context cancellation aside)
//   - History store unavailability
//   - Configuration errors
//
// Context Fields:
//   - source: upstream query label (tag/type pair)
//   - query_key: snapshot cache key
//   - generation: load generation counter
//   - page: per-source page index
//   - items: number of items fetched or appended
//   - duration: fan-out round duration
//   - cache_hit: boolean indicating snapshot reuse
//   - failures: consecutive failure count for a source
