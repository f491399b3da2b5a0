// Package cache provides an in-process read-through cache for contract state
// with two selectable eviction policies.
//
// The Layer facade owns exactly one Backend chosen at construction:
//
// - approx-frequency: ristretto (TinyLFU admission, sampled LFU eviction),
// one global TTL, striped internals
// - exact-recency: strict LRU with a per-entry expiry, one mutex for the
// whole structure, lazy expiration on access
//
// # Basic Usage
//
//	layer, err := cache.New(cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//	defer layer.Close()
//
//	value, ok := layer.Get("contract-1", "balance")
//	if !ok {
//		// Cache miss - fetch from the source and measure it
//		start := time.Now()
//		value, err = source.FetchState(ctx, "contract-1", "balance")
//		if err != nil {
//			return err
//		}
//		layer.RecordUncachedLatency(time.Since(start))
//		layer.Put("contract-1", "balance", value, 0)
//	}
//
// # Metrics
//
// Every Get on an enabled layer records one hit or one miss. Hits also record
// the lookup latency. Callers report the cost of recomputing a value with
// RecordUncachedLatency, which gives ImprovementFactor its baseline:
//
//   - HitRate: hits / (hits + misses) * 100
//   - AvgCachedLatency / AvgUncachedLatency: microseconds
//   - ImprovementFactor: uncached / cached average (1.0 without cached
//     samples, 0.0 without uncached samples)
//
// Counters are independent atomics; derived values are approximate while
// writers are active. The metrics package exports them to Prometheus.
//
// # TTL Overrides
//
// Put takes a per-call TTL override (<= 0 means none). Only the exact-recency
// backend honors it; approx-frequency always applies the global TTL.
//
// # Keys
//
// (namespace, key) pairs are encoded with a length prefix (see CacheKey), so
// components containing ':' never collide.
package cache
