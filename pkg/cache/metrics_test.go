package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMetrics_Empty(t *testing.T) {
	m := &CacheMetrics{}

	assert.Equal(t, 0.0, m.HitRate())
	assert.Equal(t, 0.0, m.AvgCachedLatency())
	assert.Equal(t, 0.0, m.AvgUncachedLatency())
	assert.Equal(t, 1.0, m.ImprovementFactor(), "no samples at all falls into the cached-zero case")
}

func TestCacheMetrics_HitRate(t *testing.T) {
	tests := []struct {
		name   string
		hits   int
		misses int
		want   float64
	}{
		{name: "one hit one miss", hits: 1, misses: 1, want: 50.0},
		{name: "only hits", hits: 4, misses: 0, want: 100.0},
		{name: "only misses", hits: 0, misses: 3, want: 0.0},
		{name: "three of four", hits: 3, misses: 1, want: 75.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &CacheMetrics{}
			for i := 0; i < tt.hits; i++ {
				m.RecordHit()
			}
			for i := 0; i < tt.misses; i++ {
				m.RecordMiss()
			}

			assert.Equal(t, tt.want, m.HitRate())
			assert.Equal(t, uint64(tt.hits), m.Hits())
			assert.Equal(t, uint64(tt.misses), m.Misses())
		})
	}
}

func TestCacheMetrics_AverageLatency(t *testing.T) {
	m := &CacheMetrics{}

	m.RecordCachedLatency(10 * time.Microsecond)
	m.RecordCachedLatency(30 * time.Microsecond)
	m.RecordUncachedLatency(2 * time.Millisecond)

	assert.Equal(t, 20.0, m.AvgCachedLatency())
	assert.Equal(t, 2000.0, m.AvgUncachedLatency())
	assert.Equal(t, 100.0, m.ImprovementFactor())
}

func TestCacheMetrics_LatencyTruncatesToMicroseconds(t *testing.T) {
	m := &CacheMetrics{}

	m.RecordCachedLatency(1500 * time.Nanosecond)
	m.RecordCachedLatency(-time.Second)

	assert.Equal(t, 0.5, m.AvgCachedLatency(), "1µs + 0µs over two samples")
}

func TestCacheMetrics_ImprovementFactorEdges(t *testing.T) {
	t.Run("no cached samples", func(t *testing.T) {
		m := &CacheMetrics{}
		m.RecordUncachedLatency(5 * time.Millisecond)
		assert.Equal(t, 1.0, m.ImprovementFactor())
	})

	t.Run("no uncached samples", func(t *testing.T) {
		m := &CacheMetrics{}
		m.RecordCachedLatency(50 * time.Microsecond)
		assert.Equal(t, 0.0, m.ImprovementFactor())
	})

	t.Run("neither", func(t *testing.T) {
		m := &CacheMetrics{}
		assert.Equal(t, 1.0, m.ImprovementFactor())
	})
}

func TestCacheMetrics_Snapshot(t *testing.T) {
	m := &CacheMetrics{}
	m.RecordHit()
	m.RecordMiss()
	m.RecordEviction()
	m.RecordCachedLatency(100 * time.Microsecond)
	m.RecordUncachedLatency(400 * time.Microsecond)

	s := m.Snapshot()
	assert.Equal(t, Snapshot{
		Hits:                     1,
		Misses:                   1,
		Evictions:                1,
		HitRate:                  50.0,
		AvgCachedLatencyMicros:   100.0,
		AvgUncachedLatencyMicros: 400.0,
		CachedSamples:            1,
		UncachedSamples:          1,
		ImprovementFactor:        4.0,
	}, s)
}

func TestCacheMetrics_ConcurrentUpdates(t *testing.T) {
	m := &CacheMetrics{}

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.RecordHit()
				m.RecordMiss()
				m.RecordCachedLatency(time.Microsecond)
				_ = m.HitRate()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(workers*perWorker), m.Hits())
	require.Equal(t, uint64(workers*perWorker), m.Misses())
	assert.Equal(t, 50.0, m.HitRate())
	assert.Equal(t, 1.0, m.AvgCachedLatency())
}

func TestCacheMetrics_SubMicrosecondHitsReportDefinitionalFactor(t *testing.T) {
	m := &CacheMetrics{}
	m.RecordCachedLatency(500 * time.Nanosecond)
	m.RecordUncachedLatency(10 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.CachedSamples, "the sample is counted")
	assert.Equal(t, 0.0, snap.AvgCachedLatencyMicros, "but truncates to 0µs")
	assert.Equal(t, 1.0, snap.ImprovementFactor)
}
