package cache

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Layer is the cache facade. It owns one backend selected at construction
// and adds the enabled toggle and cached-latency instrumentation.
type Layer struct {
	backend Backend
	config  Config
	logger  zerolog.Logger
}

// New validates cfg and creates a Layer with the backend selected by cfg.Policy.
// A backend is built even when the layer is disabled, so an invalid
// configuration fails regardless of the toggle.
func New(cfg Config, logger zerolog.Logger) (*Layer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.Policy, err)
	}

	logger.Info().
		Bool("enabled", cfg.Enabled).
		Str("policy", string(cfg.Policy)).
		Dur("global_ttl", cfg.GlobalTTL).
		Int("max_capacity", cfg.MaxCapacity).
		Msg("Cache layer initialized")

	return &Layer{
		backend: backend,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Config returns the configuration the layer was built with.
func (l *Layer) Config() Config {
	return l.config
}

// Get returns the cached value for (namespace, key).
// A disabled layer always reports a miss without recording it.
func (l *Layer) Get(namespace, key string) (string, bool) {
	if !l.config.Enabled {
		return "", false
	}

	start := time.Now()
	value, ok := l.backend.Get(namespace, key)
	if ok {
		// Only successful serves carry a latency sample.
		l.backend.Metrics().RecordCachedLatency(time.Since(start))
	}

	l.logger.Debug().
		Str("namespace", namespace).
		Str("key", key).
		Bool("cache_hit", ok).
		Msg("Cache lookup")

	return value, ok
}

// Put stores value under (namespace, key). ttlOverride <= 0 selects the
// global TTL; the approximate-frequency backend always uses the global TTL.
func (l *Layer) Put(namespace, key, value string, ttlOverride time.Duration) {
	if !l.config.Enabled {
		return
	}

	l.backend.Put(namespace, key, value, ttlOverride)

	l.logger.Debug().
		Str("namespace", namespace).
		Str("key", key).
		Dur("ttl_override", ttlOverride).
		Msg("Cache put")
}

// Invalidate removes (namespace, key) from the cache.
func (l *Layer) Invalidate(namespace, key string) {
	if !l.config.Enabled {
		return
	}

	l.backend.Invalidate(namespace, key)

	l.logger.Debug().
		Str("namespace", namespace).
		Str("key", key).
		Msg("Cache invalidate")
}

// Metrics returns the collector shared with the backend.
func (l *Layer) Metrics() *CacheMetrics {
	return l.backend.Metrics()
}

// Stats returns a snapshot of the current metrics.
func (l *Layer) Stats() Snapshot {
	return l.backend.Metrics().Snapshot()
}

// RecordUncachedLatency records the cost of recomputing a value outside the
// cache. The layer cannot observe that path itself; callers report it after
// a miss so ImprovementFactor has a baseline.
func (l *Layer) RecordUncachedLatency(d time.Duration) {
	l.backend.Metrics().RecordUncachedLatency(d)
}

// Close releases backend resources. The layer must not be used afterwards.
func (l *Layer) Close() {
	l.backend.Close()
}
