package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// RecencyBackend is a strict LRU with an explicit expiry per entry.
//
// One mutex guards the whole structure, reads included: a Get promotes the
// entry and may remove it when expired. Expired entries are only removed
// when their key is looked up again or when capacity pressure evicts them.
type RecencyBackend struct {
	mu        sync.Mutex
	entries   *simplelru.LRU[string, CacheEntry]
	globalTTL time.Duration
	metrics   *CacheMetrics
	now       func() time.Time
}

// NewRecencyBackend creates an exact-recency backend holding at most capacity entries.
func NewRecencyBackend(capacity int, globalTTL time.Duration) (*RecencyBackend, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidCapacity, capacity)
	}

	entries, err := simplelru.NewLRU[string, CacheEntry](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &RecencyBackend{
		entries:   entries,
		globalTTL: globalTTL,
		metrics:   &CacheMetrics{},
		now:       time.Now,
	}, nil
}

// Get returns the value if present and unexpired, promoting it to most recently used.
func (b *RecencyBackend) Get(namespace, key string) (string, bool) {
	cacheKey := compositeKey(namespace, key)

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries.Get(cacheKey)
	if ok && !entry.IsExpired(b.now()) {
		b.metrics.RecordHit()
		return entry.Value, true
	}
	if ok {
		b.entries.Remove(cacheKey)
	}

	b.metrics.RecordMiss()
	return "", false
}

// Put stores value with expiry now + (ttlOverride or global TTL).
func (b *RecencyBackend) Put(namespace, key, value string, ttlOverride time.Duration) {
	ttl := b.globalTTL
	if ttlOverride > 0 {
		ttl = ttlOverride
	}
	cacheKey := compositeKey(namespace, key)

	b.mu.Lock()
	defer b.mu.Unlock()

	entry := CacheEntry{Value: value, Expiry: b.now().Add(ttl)}
	if evicted := b.entries.Add(cacheKey, entry); evicted {
		b.metrics.RecordEviction()
	}
}

// Invalidate removes the entry if present.
func (b *RecencyBackend) Invalidate(namespace, key string) {
	cacheKey := compositeKey(namespace, key)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries.Remove(cacheKey)
}

// Len returns the number of resident entries, expired ones included.
func (b *RecencyBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries.Len()
}

// Metrics returns the backend's collector.
func (b *RecencyBackend) Metrics() *CacheMetrics {
	return b.metrics
}

// Close is a no-op; the backend owns no goroutines.
func (b *RecencyBackend) Close() {}

var _ Backend = (*RecencyBackend)(nil)
