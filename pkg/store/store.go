// Package store reads and writes contract state in Redis. It is the slow
// source of truth that the cache layer sits in front of.
//
// Each contract is one Redis hash; state keys are hash fields:
//
//	HGET statecache:contract:<contract_id> <key>
package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// KeyPrefix prefixes every contract hash.
const KeyPrefix = "statecache:contract:"

// Prometheus metrics for store operations.
var (
	storeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statecache_store_requests_total",
		Help: "Total store operations by operation and result",
	}, []string{"operation", "result"})

	storeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statecache_store_request_duration_seconds",
		Help:    "Store operation duration in seconds, retries included",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation"})

	storeRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statecache_store_retries_total",
		Help: "Total number of store retry attempts by operation",
	}, []string{"operation"})

	storeRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statecache_store_retry_exhausted_total",
		Help: "Total number of times store retries were exhausted by operation",
	}, []string{"operation"})
)

// Store is a Redis-backed contract state store.
type Store struct {
	redis  *redis.Client
	retry  RetryConfig
	logger zerolog.Logger
}

// New creates a store. Zero fields in retry fall back to DefaultRetryConfig.
func New(redisClient *redis.Client, retry RetryConfig, logger zerolog.Logger) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		retry:  retry.normalize(),
		logger: logger,
	}
}

func contractKey(contractID string) string {
	return KeyPrefix + contractID
}

// FetchState returns the state stored for (contractID, key).
// Returns an error wrapping ErrNotFound if the field does not exist.
func (s *Store) FetchState(ctx context.Context, contractID, key string) (string, error) {
	var value string
	err := s.do(ctx, "fetch", contractID, key, func() error {
		v, err := s.redis.HGet(ctx, contractKey(contractID), key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// PutState writes value for (contractID, key).
func (s *Store) PutState(ctx context.Context, contractID, key, value string) error {
	return s.do(ctx, "put", contractID, key, func() error {
		return s.redis.HSet(ctx, contractKey(contractID), key, value).Err()
	})
}

// DeleteState removes (contractID, key). Deleting an absent field is not an error.
func (s *Store) DeleteState(ctx context.Context, contractID, key string) error {
	return s.do(ctx, "delete", contractID, key, func() error {
		return s.redis.HDel(ctx, contractKey(contractID), key).Err()
	})
}

// Ping checks the Redis connection without retrying.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// do runs fn with retry, records metrics and wraps failures in a StoreError.
func (s *Store) do(ctx context.Context, op, contractID, key string, fn func() error) error {
	start := time.Now()
	defer func() {
		storeRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	err := retryWithBackoff(ctx, s.retry, op, s.logger, fn)
	if err == nil {
		storeRequestsTotal.WithLabelValues(op, "ok").Inc()
		return nil
	}

	class := classifyError(err)
	storeRequestsTotal.WithLabelValues(op, string(class)).Inc()

	if class != ErrorClassNotFound {
		s.logger.Warn().
			Err(err).
			Str("operation", op).
			Str("contract_id", contractID).
			Str("key", key).
			Str("error_class", string(class)).
			Msg("Store operation failed")
	}

	return &StoreError{
		Op:         op,
		ContractID: contractID,
		Key:        key,
		Class:      class,
		Err:        err,
	}
}
