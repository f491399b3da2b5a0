// Package testutil provides testing utilities for the contract state cache.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/contract-state-cache/pkg/store"
)

// FakeSource is a configurable in-memory contract state source for testing.
// It satisfies readthrough.Source.
type FakeSource struct {
	mu     sync.RWMutex
	values map[string]string
	errs   map[string]error
	delay  time.Duration

	// Tracking
	calls map[string]int
	total int
}

// NewFakeSource creates an empty fake source.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		values: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func sourceKey(contractID, key string) string {
	return fmt.Sprintf("%d:%s:%s", len(contractID), contractID, key)
}

// Set stores a value for (contractID, key).
func (f *FakeSource) Set(contractID, key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[sourceKey(contractID, key)] = value
}

// SetError makes fetches of (contractID, key) fail with err. A nil err clears it.
func (f *FakeSource) SetError(contractID, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, sourceKey(contractID, key))
		return
	}
	f.errs[sourceKey(contractID, key)] = err
}

// SetDelay makes every fetch take at least d, simulating an expensive lookup.
func (f *FakeSource) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// FetchState implements readthrough.Source. Absent state returns store.ErrNotFound.
func (f *FakeSource) FetchState(ctx context.Context, contractID, key string) (string, error) {
	k := sourceKey(contractID, key)

	f.mu.Lock()
	f.calls[k]++
	f.total++
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err, ok := f.errs[k]; ok {
		return "", err
	}
	value, ok := f.values[k]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

// Calls returns how often (contractID, key) was fetched.
func (f *FakeSource) Calls(contractID, key string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[sourceKey(contractID, key)]
}

// TotalCalls returns the number of fetches across all keys.
func (f *FakeSource) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.total
}

// Reset clears all tracking counters.
func (f *FakeSource) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
	f.total = 0
}
