package cache

import (
	"time"
)

// Backend is an eviction strategy behind a Layer.
//
// Implementations must be safe for concurrent use and must record exactly
// one hit or one miss on their CacheMetrics for every Get.
type Backend interface {
	// Get returns the value stored under (namespace, key) if present and unexpired.
	Get(namespace, key string) (string, bool)

	// Put stores value under (namespace, key). A ttlOverride <= 0 means the
	// global TTL applies. Backends may ignore the override.
	Put(namespace, key, value string, ttlOverride time.Duration)

	// Invalidate removes (namespace, key) if present.
	Invalidate(namespace, key string)

	// Metrics returns the collector shared with the owning Layer.
	Metrics() *CacheMetrics

	// Close releases background resources held by the backend.
	Close()
}

// newBackend builds the backend selected by cfg.Policy.
func newBackend(cfg Config) (Backend, error) {
	switch cfg.Policy {
	case PolicyApproxFrequency:
		return NewFrequencyBackend(cfg.MaxCapacity, cfg.GlobalTTL)
	case PolicyExactRecency:
		return NewRecencyBackend(cfg.MaxCapacity, cfg.GlobalTTL)
	default:
		return nil, ErrUnknownPolicy
	}
}
