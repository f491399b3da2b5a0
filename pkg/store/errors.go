package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Common errors returned by the store.
var (
	// ErrNotFound is returned when the contract has no state under the key.
	ErrNotFound = errors.New("contract state not found")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of store errors.
type ErrorClass string

const (
	// ErrorClassNotFound represents an absent hash field.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassCancelled represents a cancelled or expired context.
	ErrorClassCancelled ErrorClass = "cancelled"

	// ErrorClassTransient represents network and server-side Redis errors.
	ErrorClassTransient ErrorClass = "transient"
)

// StoreError carries the failed operation and its classification.
type StoreError struct {
	Op         string
	ContractID string
	Key        string
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s/%s (%s): %v", e.Op, e.ContractID, e.Key, e.Class, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// classifyError categorizes a Redis error for retry decisions.
func classifyError(err error) ErrorClass {
	switch {
	case errors.Is(err, redis.Nil), errors.Is(err, ErrNotFound):
		return ErrorClassNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrContextCancelled):
		return ErrorClassCancelled
	default:
		return ErrorClassTransient
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassTransient:
		return true
	default:
		// Absent state is an answer, and a dead context will not recover.
		return false
	}
}
