// Package config loads the statecache-proxy configuration from an optional
// YAML file followed by environment variable overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/contract-state-cache/pkg/cache"
	"github.com/Sternrassler/contract-state-cache/pkg/logging"
	"github.com/Sternrassler/contract-state-cache/pkg/readthrough"
	"github.com/Sternrassler/contract-state-cache/pkg/store"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig holds the contract state store connection.
type RedisConfig struct {
	// URL is either host:port or a redis:// URL.
	URL string `yaml:"url"`
	DB  int    `yaml:"db"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig mirrors store.RetryConfig with YAML tags.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// Store converts to the store package's retry configuration.
func (r RetryConfig) Store() store.RetryConfig {
	return store.RetryConfig{
		MaxAttempts:       r.MaxAttempts,
		InitialBackoff:    r.InitialBackoff,
		MaxBackoff:        r.MaxBackoff,
		BackoffMultiplier: r.BackoffMultiplier,
	}
}

// Config is the full proxy configuration.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Redis       RedisConfig        `yaml:"redis"`
	Cache       cache.Config       `yaml:"cache"`
	ReadThrough readthrough.Config `yaml:"readthrough"`
	Log         logging.Config     `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	retry := store.DefaultRetryConfig()
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			URL: "localhost:6379",
			Retry: RetryConfig{
				MaxAttempts:       retry.MaxAttempts,
				InitialBackoff:    retry.InitialBackoff,
				MaxBackoff:        retry.MaxBackoff,
				BackoffMultiplier: retry.BackoffMultiplier,
			},
		},
		Cache:       cache.DefaultConfig(),
		ReadThrough: readthrough.DefaultConfig(),
		Log:         logging.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// decodeYAML overlays data onto cfg, rejecting unknown fields.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv applies environment overrides using lookup (os.LookupEnv in production).
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Server.Port = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		cfg.Redis.URL = v
	}
	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.Redis.DB = db
	}
	if v, ok := lookup("CACHE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_ENABLED %q: %w", v, err)
		}
		cfg.Cache.Enabled = enabled
	}
	if v, ok := lookup("CACHE_POLICY"); ok && v != "" {
		policy, err := cache.ParsePolicy(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_POLICY: %w", err)
		}
		cfg.Cache.Policy = policy
	}
	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
		}
		cfg.Cache.GlobalTTL = ttl
	}
	if v, ok := lookup("CACHE_MAX_CAPACITY"); ok && v != "" {
		capacity, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_MAX_CAPACITY %q: %w", v, err)
		}
		cfg.Cache.MaxCapacity = capacity
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = logging.LogLevel(v)
	}
	if v, ok := lookup("LOG_PRETTY"); ok && v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_PRETTY %q: %w", v, err)
		}
		cfg.Log.Pretty = pretty
	}
	return nil
}

// Validate checks settings that would otherwise fail at startup.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	if c.Redis.URL == "" {
		return errors.New("redis url must not be empty")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis db must not be negative, got %d", c.Redis.DB)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
