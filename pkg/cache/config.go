package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCapacity indicates a capacity below one entry.
	ErrInvalidCapacity = errors.New("cache capacity must be positive")

	// ErrInvalidTTL indicates a non-positive global TTL.
	ErrInvalidTTL = errors.New("cache global ttl must be positive")

	// ErrUnknownPolicy indicates an eviction policy name that cannot be resolved.
	ErrUnknownPolicy = errors.New("unknown eviction policy")
)

// Policy selects the eviction backend of a Layer.
type Policy string

const (
	// PolicyApproxFrequency uses a TinyLFU-admitted, sampled-LFU cache with one global TTL.
	PolicyApproxFrequency Policy = "approx-frequency"

	// PolicyExactRecency uses a strict LRU with a per-entry expiry.
	PolicyExactRecency Policy = "exact-recency"
)

const (
	// DefaultGlobalTTL is the TTL applied when a Put carries no override.
	DefaultGlobalTTL = 60 * time.Second

	// DefaultMaxCapacity is the default number of entries a backend holds.
	DefaultMaxCapacity = 10_000
)

// ParsePolicy resolves a policy name. Besides the canonical names it accepts
// "lfu"/"tinylfu" and "lru" in any case.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(PolicyApproxFrequency), "lfu", "tinylfu":
		return PolicyApproxFrequency, nil
	case string(PolicyExactRecency), "lru":
		return PolicyExactRecency, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// UnmarshalText lets a Policy be decoded from YAML or env text via ParsePolicy.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Config holds the cache layer configuration. It is copied into the Layer
// at construction and never changes afterwards.
type Config struct {
	// Enabled turns the whole layer on or off. A disabled layer never stores
	// anything and never touches its metrics.
	Enabled bool `yaml:"enabled"`

	// Policy selects the eviction backend.
	Policy Policy `yaml:"policy"`

	// GlobalTTL is applied to every entry that has no per-call override.
	GlobalTTL time.Duration `yaml:"global_ttl"`

	// MaxCapacity is the maximum number of entries.
	MaxCapacity int `yaml:"max_capacity"`
}

// DefaultConfig returns the default configuration: enabled, approximate
// frequency policy, 60s TTL, 10,000 entries.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Policy:      PolicyApproxFrequency,
		GlobalTTL:   DefaultGlobalTTL,
		MaxCapacity: DefaultMaxCapacity,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.MaxCapacity < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidCapacity, c.MaxCapacity)
	}
	if c.GlobalTTL <= 0 {
		return fmt.Errorf("%w (got %v)", ErrInvalidTTL, c.GlobalTTL)
	}
	switch c.Policy {
	case PolicyApproxFrequency, PolicyExactRecency:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, c.Policy)
	}
}
