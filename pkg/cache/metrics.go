package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics collects hit/miss counts and latency samples for one Layer.
//
// Every counter is an independent atomic. Derived values (HitRate,
// ImprovementFactor) read several counters without a common snapshot, so
// under concurrent writers they are approximate.
type CacheMetrics struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	cachedLatencySumMicros   atomic.Uint64
	cachedCount              atomic.Uint64
	uncachedLatencySumMicros atomic.Uint64
	uncachedCount            atomic.Uint64
}

// Snapshot is a copy of the metrics and their derived values.
type Snapshot struct {
	Hits                     uint64  `json:"hits"`
	Misses                   uint64  `json:"misses"`
	Evictions                uint64  `json:"evictions"`
	HitRate                  float64 `json:"hit_rate"`
	AvgCachedLatencyMicros   float64 `json:"avg_cached_latency_us"`
	AvgUncachedLatencyMicros float64 `json:"avg_uncached_latency_us"`
	CachedSamples            uint64  `json:"cached_samples"`
	UncachedSamples          uint64  `json:"uncached_samples"`
	ImprovementFactor        float64 `json:"improvement_factor"`
}

// RecordHit counts a lookup that returned a value.
func (m *CacheMetrics) RecordHit() {
	m.hits.Add(1)
}

// RecordMiss counts a lookup that returned nothing.
func (m *CacheMetrics) RecordMiss() {
	m.misses.Add(1)
}

// RecordEviction counts an entry removed to make room for another.
func (m *CacheMetrics) RecordEviction() {
	m.evictions.Add(1)
}

// RecordCachedLatency adds one sample for a lookup served from cache.
func (m *CacheMetrics) RecordCachedLatency(d time.Duration) {
	m.cachedLatencySumMicros.Add(micros(d))
	m.cachedCount.Add(1)
}

// RecordUncachedLatency adds one sample for a value recomputed outside the cache.
func (m *CacheMetrics) RecordUncachedLatency(d time.Duration) {
	m.uncachedLatencySumMicros.Add(micros(d))
	m.uncachedCount.Add(1)
}

// Hits returns the number of recorded hits.
func (m *CacheMetrics) Hits() uint64 {
	return m.hits.Load()
}

// Misses returns the number of recorded misses.
func (m *CacheMetrics) Misses() uint64 {
	return m.misses.Load()
}

// Evictions returns the number of capacity-driven evictions.
func (m *CacheMetrics) Evictions() uint64 {
	return m.evictions.Load()
}

// HitRate returns hits / (hits + misses) * 100, or 0 with no samples.
func (m *CacheMetrics) HitRate() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgCachedLatency returns the mean cached lookup latency in microseconds.
func (m *CacheMetrics) AvgCachedLatency() float64 {
	return average(m.cachedLatencySumMicros.Load(), m.cachedCount.Load())
}

// AvgUncachedLatency returns the mean recomputation latency in microseconds.
func (m *CacheMetrics) AvgUncachedLatency() float64 {
	return average(m.uncachedLatencySumMicros.Load(), m.uncachedCount.Load())
}

// ImprovementFactor returns AvgUncachedLatency / AvgCachedLatency.
//
// With no cached samples it returns 1.0 (no improvement measurable); with
// no uncached samples it returns 0.0 (no baseline). The cached check comes
// first, so with neither it returns 1.0.
//
// Latencies are kept in whole microseconds. In-process hits usually take
// less than that, so the cached average is often 0 and the factor reports
// the definitional 1.0 rather than a measured ratio. Check CachedSamples
// and AvgCachedLatency before reading 1.0 as "no speedup".
func (m *CacheMetrics) ImprovementFactor() float64 {
	cached := m.AvgCachedLatency()
	uncached := m.AvgUncachedLatency()
	if cached == 0 {
		return 1.0
	}
	if uncached == 0 {
		return 0.0
	}
	return uncached / cached
}

// Snapshot copies the current counters and derived values.
func (m *CacheMetrics) Snapshot() Snapshot {
	return Snapshot{
		Hits:                     m.Hits(),
		Misses:                   m.Misses(),
		Evictions:                m.Evictions(),
		HitRate:                  m.HitRate(),
		AvgCachedLatencyMicros:   m.AvgCachedLatency(),
		AvgUncachedLatencyMicros: m.AvgUncachedLatency(),
		CachedSamples:            m.cachedCount.Load(),
		UncachedSamples:          m.uncachedCount.Load(),
		ImprovementFactor:        m.ImprovementFactor(),
	}
}

func average(sum, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func micros(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Microseconds())
}
