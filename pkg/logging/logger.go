// Package logging configures zerolog for the cache service and its libraries.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `yaml:"level"`

	// Pretty switches from JSON to human-readable console output.
	Pretty bool `yaml:"pretty"`

	// Service is attached to every entry as the "service" field when set.
	Service string `yaml:"service"`

	// Output defaults to os.Stderr.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Service: "statecache",
		Output:  os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level.
// Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewLogger derives a logger from the global one with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-operation detail
//   - Cache lookups, puts and invalidations (namespace, key, cache_hit)
//   - Source fetches stored in the cache, joined in-flight fetches
//
// Info: lifecycle events
//   - Cache layer initialized (policy, global_ttl, max_capacity)
//   - Server startup/shutdown
//   - Store operation succeeded after retry
//
// Warn: degraded but serving
//   - Store retry attempts
//   - Source fetch failures returned to the caller
//   - Partial batch results
//
// Error: needs attention
//   - Store retries exhausted
//   - Invalid configuration, startup failures
//
// Context Fields:
//   - component: emitting package (cache, store, readthrough, proxy)
//   - namespace, key: cache coordinates (namespace is the contract ID)
//   - cache_hit: lookup result
//   - operation: store operation (fetch, put, delete)
//   - error_class: store error classification (not_found, cancelled, transient)
//   - duration: elapsed time of the logged operation
