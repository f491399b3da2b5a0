package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// FrequencyBackend delegates storage and eviction to ristretto: TinyLFU
// admission, sampled-LFU eviction and one global TTL. Its internals are
// striped, so operations on different keys do not serialize.
//
// The per-call TTL override is accepted but not honored; every entry lives
// for the global TTL.
type FrequencyBackend struct {
	store     *ristretto.Cache[string, string]
	globalTTL time.Duration
	metrics   *CacheMetrics
}

// NewFrequencyBackend creates an approximate-frequency backend bounded to capacity entries.
func NewFrequencyBackend(capacity int, globalTTL time.Duration) (*FrequencyBackend, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidCapacity, capacity)
	}

	metrics := &CacheMetrics{}
	store, err := ristretto.NewCache(&ristretto.Config[string, string]{
		// Ristretto recommends ~10x the expected number of items.
		NumCounters:        int64(capacity) * 10,
		MaxCost:            int64(capacity),
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnEvict: func(*ristretto.Item[string]) {
			metrics.RecordEviction()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &FrequencyBackend{
		store:     store,
		globalTTL: globalTTL,
		metrics:   metrics,
	}, nil
}

// Get returns the value if ristretto holds an unexpired entry.
func (b *FrequencyBackend) Get(namespace, key string) (string, bool) {
	value, ok := b.store.Get(compositeKey(namespace, key))
	if ok {
		b.metrics.RecordHit()
	} else {
		b.metrics.RecordMiss()
	}
	return value, ok
}

// Put stores value for the global TTL. ttlOverride is ignored.
//
// Ristretto applies writes asynchronously; Put waits for the write buffer
// so a following Get observes the value. The admission policy may still
// drop the write.
func (b *FrequencyBackend) Put(namespace, key, value string, _ time.Duration) {
	if b.store.SetWithTTL(compositeKey(namespace, key), value, 1, b.globalTTL) {
		b.store.Wait()
	}
}

// Invalidate removes the entry if present.
func (b *FrequencyBackend) Invalidate(namespace, key string) {
	b.store.Del(compositeKey(namespace, key))
}

// Metrics returns the backend's collector.
func (b *FrequencyBackend) Metrics() *CacheMetrics {
	return b.metrics
}

// Close stops ristretto's background goroutines.
func (b *FrequencyBackend) Close() {
	b.store.Close()
}

var _ Backend = (*FrequencyBackend)(nil)
