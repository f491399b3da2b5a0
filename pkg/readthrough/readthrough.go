// Package readthrough puts a cache layer in front of a contract state source.
//
// A Get consults the cache first. On a miss the source is queried, the value is
// stored and the cost of the source call is reported to the cache metrics as an
// uncached latency sample, giving the improvement factor its baseline.
// Concurrent misses for the same key share one source call.
//
// Example usage:
//
//	layer, _ := cache.New(cache.DefaultConfig(), logger)
//	svc := readthrough.New(layer, stateStore, readthrough.DefaultConfig(), logger)
//	value, cached, err := svc.Get(ctx, "0xabc", "balance")
package readthrough

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/contract-state-cache/pkg/cache"
	"github.com/Sternrassler/contract-state-cache/pkg/store"
)

var sourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "statecache_readthrough_source_fetches_total",
	Help: "Total source fetches after cache misses by result",
}, []string{"result"})

// Source is the slow lookup the cache sits in front of.
// FetchState must return an error wrapping store.ErrNotFound for absent state.
type Source interface {
	FetchState(ctx context.Context, contractID, key string) (string, error)
}

// Cache is the subset of *cache.Layer the service needs.
type Cache interface {
	Get(namespace, key string) (string, bool)
	Put(namespace, key, value string, ttlOverride time.Duration)
	Invalidate(namespace, key string)
	RecordUncachedLatency(d time.Duration)
}

// Config holds read-through configuration.
type Config struct {
	// TTLOverrides maps a namespace to the TTL used for its entries.
	// Only the exact-recency policy honors per-entry TTLs.
	TTLOverrides map[string]time.Duration `yaml:"ttl_overrides"`

	// MaxConcurrency bounds parallel source fetches in GetMany.
	MaxConcurrency int `yaml:"max_concurrency"`

	// FetchTimeout bounds a single source fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// DefaultConfig returns the default read-through configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		FetchTimeout:   5 * time.Second,
	}
}

// Service implements read-through lookups.
type Service struct {
	cache  Cache
	source Source
	config Config
	group  singleflight.Group
	logger zerolog.Logger
}

// New creates a read-through service. Zero config fields fall back to defaults.
func New(c Cache, source Source, config Config, logger zerolog.Logger) *Service {
	if c == nil {
		panic("cache cannot be nil")
	}
	if source == nil {
		panic("source cannot be nil")
	}

	def := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = def.FetchTimeout
	}

	return &Service{
		cache:  c,
		source: source,
		config: config,
		logger: logger,
	}
}

// Get returns the state for (namespace, key) and whether it was served from
// the cache. Source errors are returned as-is and never cached.
func (s *Service) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if value, ok := s.cache.Get(namespace, key); ok {
		return value, true, nil
	}

	// The shared fetch outlives any single caller; only FetchTimeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(cache.CacheKey{Namespace: namespace, Key: key}.String(), func() (interface{}, error) {
		return s.fetch(fetchCtx, namespace, key)
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		if res.Shared {
			s.logger.Debug().
				Str("namespace", namespace).
				Str("key", key).
				Msg("Joined in-flight source fetch")
		}
		return res.Val.(string), false, nil
	}
}

// fetch queries the source, stores the result and records its latency.
// ctx must not carry a caller's cancellation.
func (s *Service) fetch(ctx context.Context, namespace, key string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	start := time.Now()
	value, err := s.source.FetchState(fetchCtx, namespace, key)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sourceFetchesTotal.WithLabelValues("not_found").Inc()
		} else {
			sourceFetchesTotal.WithLabelValues("error").Inc()
			s.logger.Warn().
				Err(err).
				Str("namespace", namespace).
				Str("key", key).
				Dur("duration", elapsed).
				Msg("Source fetch failed")
		}
		return "", err
	}

	sourceFetchesTotal.WithLabelValues("ok").Inc()
	s.cache.RecordUncachedLatency(elapsed)
	s.cache.Put(namespace, key, value, s.config.TTLOverrides[namespace])

	s.logger.Debug().
		Str("namespace", namespace).
		Str("key", key).
		Dur("duration", elapsed).
		Msg("Source fetch stored in cache")

	return value, nil
}

// GetMany fetches keys of one namespace in parallel, bounded by MaxConcurrency.
// Keys without state are left out of the result. On the first other error the
// remaining fetches are cancelled and the partial result is returned with it.
func (s *Service) GetMany(ctx context.Context, namespace string, keys []string) (map[string]string, error) {
	start := time.Now()

	values := make([]string, len(keys))
	found := make([]bool, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrency)

	for i, key := range keys {
		g.Go(func() error {
			value, _, err := s.Get(gctx, namespace, key)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("fetch %s: %w", key, err)
			}
			values[i] = value
			found[i] = true
			return nil
		})
	}

	err := g.Wait()

	results := make(map[string]string, len(keys))
	for i, key := range keys {
		if found[i] {
			results[key] = values[i]
		}
	}

	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("namespace", namespace).
			Int("fetched", len(results)).
			Int("requested", len(keys)).
			Msg("Batch fetch failed - returning partial results")
		return results, err
	}

	s.logger.Debug().
		Str("namespace", namespace).
		Int("fetched", len(results)).
		Int("requested", len(keys)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// Invalidate drops (namespace, key) from the cache so the next Get reads the source.
func (s *Service) Invalidate(namespace, key string) {
	s.cache.Invalidate(namespace, key)
}
