package cache

import (
	"time"
)

// CacheEntry is a value held by the exact-recency backend.
type CacheEntry struct {
	// Value is the cached contract state.
	Value string

	// Expiry is the absolute instant after which the entry is treated as absent.
	Expiry time.Time
}

// IsExpired reports whether the entry is no longer valid at now.
// An entry whose expiry equals now is expired.
func (e CacheEntry) IsExpired(now time.Time) bool {
	return !e.Expiry.After(now)
}

// TTL returns the time left until expiration relative to now.
// Returns 0 if already expired.
func (e CacheEntry) TTL(now time.Time) time.Duration {
	ttl := e.Expiry.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
