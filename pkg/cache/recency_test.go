package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRecencyBackend(t *testing.T, capacity int, ttl time.Duration) (*RecencyBackend, *fakeClock) {
	t.Helper()

	b, err := NewRecencyBackend(capacity, ttl)
	require.NoError(t, err)

	clock := newFakeClock()
	b.now = clock.Now
	return b, clock
}

func TestNewRecencyBackend_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			b, err := NewRecencyBackend(capacity, time.Minute)
			assert.Nil(t, b)
			assert.True(t, errors.Is(err, ErrInvalidCapacity), "got %v", err)
		})
	}
}

func TestRecencyBackend_PutGet(t *testing.T) {
	b, _ := newTestRecencyBackend(t, 10, time.Minute)

	b.Put("c1", "k1", "v1", 0)

	value, ok := b.Get("c1", "k1")
	require.True(t, ok)
	assert.Equal(t, "v1", value)
	assert.Equal(t, uint64(1), b.Metrics().Hits())
	assert.Equal(t, uint64(0), b.Metrics().Misses())
}

func TestRecencyBackend_MissOnUnknownKey(t *testing.T) {
	b, _ := newTestRecencyBackend(t, 10, time.Minute)

	_, ok := b.Get("c1", "missing")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), b.Metrics().Misses())
	assert.Equal(t, uint64(0), b.Metrics().Hits())
}

func TestRecencyBackend_PutReplacesValueAndExpiry(t *testing.T) {
	b, clock := newTestRecencyBackend(t, 10, time.Minute)

	b.Put("c1", "k1", "old", 10*time.Second)
	clock.Advance(8 * time.Second)
	b.Put("c1", "k1", "new", 10*time.Second)
	clock.Advance(8 * time.Second)

	value, ok := b.Get("c1", "k1")
	require.True(t, ok, "replacement should reset the expiry")
	assert.Equal(t, "new", value)
	assert.Equal(t, 1, b.Len())
}

func TestRecencyBackend_GlobalTTLExpiry(t *testing.T) {
	b, clock := newTestRecencyBackend(t, 10, time.Minute)

	b.Put("c1", "k1", "v1", 0)

	clock.Advance(59 * time.Second)
	_, ok := b.Get("c1", "k1")
	require.True(t, ok)

	clock.Advance(time.Second)
	_, ok = b.Get("c1", "k1")
	assert.False(t, ok, "entry expiring exactly now is a miss")
	assert.Equal(t, 0, b.Len(), "expired entry is removed on access")
}

func TestRecencyBackend_TTLOverride(t *testing.T) {
	b, clock := newTestRecencyBackend(t, 10, time.Hour)

	b.Put("c1", "short", "v", 50*time.Millisecond)
	b.Put("c1", "long", "v", 0)

	_, ok := b.Get("c1", "short")
	require.True(t, ok)

	clock.Advance(100 * time.Millisecond)

	_, ok = b.Get("c1", "short")
	assert.False(t, ok)
	_, ok = b.Get("c1", "long")
	assert.True(t, ok)
}

func TestRecencyBackend_TTLOverrideRealClock(t *testing.T) {
	b, err := NewRecencyBackend(100, time.Minute)
	require.NoError(t, err)

	b.Put("c1", "k1", "v1", 50*time.Millisecond)

	value, ok := b.Get("c1", "k1")
	require.True(t, ok)
	assert.Equal(t, "v1", value)

	time.Sleep(100 * time.Millisecond)

	_, ok = b.Get("c1", "k1")
	assert.False(t, ok)
}

func TestRecencyBackend_LazyExpiration(t *testing.T) {
	b, clock := newTestRecencyBackend(t, 10, time.Second)

	b.Put("c1", "k1", "v1", 0)
	b.Put("c1", "k2", "v2", 0)
	clock.Advance(2 * time.Second)

	// Expired entries stay resident until looked up.
	assert.Equal(t, 2, b.Len())

	_, ok := b.Get("c1", "k1")
	assert.False(t, ok)
	assert.Equal(t, 1, b.Len())
}

func TestRecencyBackend_Invalidate(t *testing.T) {
	b, _ := newTestRecencyBackend(t, 10, time.Minute)

	b.Put("c1", "k1", "v1", 0)
	b.Invalidate("c1", "k1")

	_, ok := b.Get("c1", "k1")
	assert.False(t, ok)

	// Invalidating an absent key is a no-op.
	b.Invalidate("c1", "never-written")
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(0), b.Metrics().Evictions())
}

func TestRecencyBackend_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	const capacity = 3
	b, _ := newTestRecencyBackend(t, capacity, time.Minute)

	for i := 0; i < capacity; i++ {
		b.Put("c1", fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i), 0)
	}

	// Touch k0 so k1 becomes the least recently used.
	_, ok := b.Get("c1", "k0")
	require.True(t, ok)

	b.Put("c1", "k3", "v3", 0)

	assert.Equal(t, capacity, b.Len())
	assert.Equal(t, uint64(1), b.Metrics().Evictions())

	_, ok = b.Get("c1", "k1")
	assert.False(t, ok, "k1 should have been evicted")

	for _, k := range []string{"k0", "k2", "k3"} {
		_, ok := b.Get("c1", k)
		assert.True(t, ok, "%s should still be cached", k)
	}
}

func TestRecencyBackend_CapacityPlusOneWithoutAccess(t *testing.T) {
	const capacity = 5
	b, _ := newTestRecencyBackend(t, capacity, time.Minute)

	for i := 0; i <= capacity; i++ {
		b.Put("c1", fmt.Sprintf("k%d", i), "v", 0)
	}

	_, ok := b.Get("c1", "k0")
	assert.False(t, ok, "oldest key should be evicted")
	for i := 1; i <= capacity; i++ {
		_, ok := b.Get("c1", fmt.Sprintf("k%d", i))
		assert.True(t, ok, "k%d should remain", i)
	}
}

func TestRecencyBackend_ReplacingAtCapacityDoesNotEvict(t *testing.T) {
	b, _ := newTestRecencyBackend(t, 2, time.Minute)

	b.Put("c1", "a", "1", 0)
	b.Put("c1", "b", "2", 0)
	b.Put("c1", "a", "3", 0)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, uint64(0), b.Metrics().Evictions())
}

func TestRecencyBackend_NamespacesAreDistinct(t *testing.T) {
	b, _ := newTestRecencyBackend(t, 10, time.Minute)

	b.Put("a:b", "c", "first", 0)
	b.Put("a", "b:c", "second", 0)

	v1, ok := b.Get("a:b", "c")
	require.True(t, ok)
	v2, ok := b.Get("a", "b:c")
	require.True(t, ok)

	assert.Equal(t, "first", v1)
	assert.Equal(t, "second", v2)
}

func TestRecencyBackend_Concurrent(t *testing.T) {
	const capacity = 64
	b, err := NewRecencyBackend(capacity, time.Minute)
	require.NoError(t, err)

	const workers = 8
	const ops = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("k%d", (w*ops+i)%200)
				b.Put("c", key, "v", 0)
				b.Get("c", key)
				if i%7 == 0 {
					b.Invalidate("c", key)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, b.Len(), capacity)
	m := b.Metrics()
	assert.Equal(t, uint64(workers*ops), m.Hits()+m.Misses(), "every Get records exactly one outcome")
}
