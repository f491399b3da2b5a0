// Package metrics exports contract-state cache metrics to Prometheus.
//
// Store metrics are package-level promauto vectors in pkg/store. Cache
// metrics live in cache.CacheMetrics and are exposed through CacheCollector,
// which reads a snapshot on every scrape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sternrassler/contract-state-cache/pkg/cache"
)

// Registry is the default Prometheus registerer used by the proxy.
var Registry = prometheus.DefaultRegisterer

// SnapshotSource provides cache snapshots; *cache.Layer satisfies it.
type SnapshotSource interface {
	Stats() cache.Snapshot
}

// CacheCollector is a prometheus.Collector over a cache snapshot.
type CacheCollector struct {
	source SnapshotSource

	hits               *prometheus.Desc
	misses             *prometheus.Desc
	evictions          *prometheus.Desc
	hitRate            *prometheus.Desc
	avgCachedLatency   *prometheus.Desc
	avgUncachedLatency *prometheus.Desc
	improvementFactor  *prometheus.Desc
}

// NewCacheCollector creates a collector labelled with the eviction policy.
func NewCacheCollector(source SnapshotSource, policy cache.Policy) *CacheCollector {
	labels := prometheus.Labels{"policy": string(policy)}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("statecache", "cache", name), help, nil, labels)
	}

	return &CacheCollector{
		source:             source,
		hits:               desc("hits_total", "Total number of cache hits"),
		misses:             desc("misses_total", "Total number of cache misses"),
		evictions:          desc("evictions_total", "Total number of capacity-driven evictions"),
		hitRate:            desc("hit_rate_percent", "Cache hit rate in percent"),
		avgCachedLatency:   desc("avg_cached_latency_microseconds", "Mean latency of lookups served from cache"),
		avgUncachedLatency: desc("avg_uncached_latency_microseconds", "Mean latency of values recomputed outside the cache"),
		improvementFactor:  desc("improvement_factor", "Average uncached latency divided by average cached latency"),
	}
}

// Describe implements prometheus.Collector.
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.hitRate
	ch <- c.avgCachedLatency
	ch <- c.avgUncachedLatency
	ch <- c.improvementFactor
}

// Collect implements prometheus.Collector.
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRate)
	ch <- prometheus.MustNewConstMetric(c.avgCachedLatency, prometheus.GaugeValue, s.AvgCachedLatencyMicros)
	ch <- prometheus.MustNewConstMetric(c.avgUncachedLatency, prometheus.GaugeValue, s.AvgUncachedLatencyMicros)
	ch <- prometheus.MustNewConstMetric(c.improvementFactor, prometheus.GaugeValue, s.ImprovementFactor)
}

// RegisterCache registers a CacheCollector for layer on reg.
func RegisterCache(reg prometheus.Registerer, layer *cache.Layer) (*CacheCollector, error) {
	collector := NewCacheCollector(layer, layer.Config().Policy)
	if err := reg.Register(collector); err != nil {
		return nil, err
	}
	return collector, nil
}

// Metrics Documentation
//
// Cache Metrics (CacheCollector, const label policy):
//   - statecache_cache_hits_total (Counter)
//   - statecache_cache_misses_total (Counter)
//   - statecache_cache_evictions_total (Counter)
//   - statecache_cache_hit_rate_percent (Gauge)
//   - statecache_cache_avg_cached_latency_microseconds (Gauge)
//   - statecache_cache_avg_uncached_latency_microseconds (Gauge)
//   - statecache_cache_improvement_factor (Gauge)
//
// Store Metrics (pkg/store):
//   - statecache_store_requests_total{operation, result} (Counter)
//   - statecache_store_request_duration_seconds{operation} (Histogram)
//   - statecache_store_retries_total{operation} (Counter)
//   - statecache_store_retry_exhausted_total{operation} (Counter)
//
// Read-through Metrics (pkg/readthrough):
//   - statecache_readthrough_source_fetches_total{result} (Counter)
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate over 5m
//	sum(rate(statecache_cache_hits_total[5m])) /
//	(sum(rate(statecache_cache_hits_total[5m])) + sum(rate(statecache_cache_misses_total[5m])))
//
//	# P95 store latency
//	histogram_quantile(0.95, rate(statecache_store_request_duration_seconds_bucket[5m]))
