package cache

import (
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
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newStringCache(t *testing.T, ttl time.Duration, clock *fakeClock) *TTLCache[string, string] {
	t.Helper()
	c, err := New[string, string](StringHasher, ttl, WithClock(clock.Now))
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("nil hasher rejected", func(t *testing.T) {
		_, err := New[string, int](nil, time.Minute)
		assert.Equal(t, ErrHasherRequired, err)
	})

	t.Run("defaults", func(t *testing.T) {
		c, err := New[string, int](StringHasher, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 0, c.Len())
	})
}

func TestTTLCache_PutGet(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, 300*time.Second, clock)

	c.Put("k1", "v1")

	got, hit := c.Get("k1")
	assert.True(t, hit)
	assert.Equal(t, "v1", got)

	_, hit = c.Get("never-set")
	assert.False(t, hit)
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, 300*time.Second, clock)

	c.Put("k1", "v1")

	// At t=299s the entry is still live.
	clock.Advance(299 * time.Second)
	got, hit := c.Get("k1")
	require.True(t, hit)
	assert.Equal(t, "v1", got)

	// At t=301s it must miss even without an explicit sweep.
	clock.Advance(2 * time.Second)
	_, hit = c.Get("k1")
	assert.False(t, hit)

	// Expired-then-read entries are lazily deleted.
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_PutResetsTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, 300*time.Second, clock)

	c.Put("k1", "v1")
	clock.Advance(200 * time.Second)
	c.Put("k1", "v2")
	clock.Advance(200 * time.Second)

	// 400s after the first put but only 200s after the overwrite.
	got, hit := c.Get("k1")
	require.True(t, hit)
	assert.Equal(t, "v2", got)
}

func TestTTLCache_UnboundedTTL(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, 0, clock)

	c.Put("k1", "v1")
	clock.Advance(1000 * time.Hour)

	_, hit := c.Get("k1")
	assert.True(t, hit)
}

func TestTTLCache_Delete(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, time.Minute, clock)

	c.Put("k1", "v1")
	c.Delete("k1")

	_, hit := c.Get("k1")
	assert.False(t, hit)
}

func TestTTLCache_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, time.Minute, clock)

	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("old-%d", i), "v")
	}
	clock.Advance(2 * time.Minute)
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("new-%d", i), "v")
	}

	evicted := c.Sweep()
	assert.Equal(t, 10, evicted)
	assert.Equal(t, 5, c.Len())
}

func TestTTLCache_CapacityEviction(t *testing.T) {
	clock := newFakeClock()
	c, err := New[string, int](StringHasher, time.Hour,
		WithClock(clock.Now), WithShardCount(1), WithCapacity(3))
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Put("d", 4) // evicts LRU entry "a"

	_, hit := c.Get("a")
	assert.False(t, hit)
	assert.Equal(t, 3, c.Len())
}

func TestTTLCache_Range(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, time.Minute, clock)

	c.Put("live-1", "v")
	c.Put("live-2", "v")
	clock.Advance(30 * time.Second)

	seen := map[string]bool{}
	c.Range(func(key, _ string) bool {
		seen[key] = true
		return true
	})
	assert.Len(t, seen, 2)

	// Expired entries are skipped.
	clock.Advance(time.Minute)
	count := 0
	c.Range(func(string, string) bool {
		count++
		return true
	})
	assert.Equal(t, 0, count)
}

func TestTTLCache_Stats(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, time.Minute, clock)

	c.Put("k1", "v1")
	c.Get("k1")
	c.Get("k1")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	clock := newFakeClock()
	c := newStringCache(t, time.Minute, clock)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i%50)
				c.Put(key, "v")
				c.Get(key)
				if i%100 == 0 {
					c.Sweep()
				}
			}
		}(w)
	}
	wg.Wait()

	// Every worker's keys are still retrievable.
	for w := 0; w < 8; w++ {
		_, hit := c.Get(fmt.Sprintf("w%d-k%d", w, 49))
		assert.True(t, hit)
	}
}

func TestTTLCache_ConcurrentSameKey(t *testing.T) {
	// Two callers missing the same key and both storing the same
	// deterministic value must not corrupt state.
	clock := newFakeClock()
	c := newStringCache(t, time.Minute, clock)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, hit := c.Get("shared"); !hit {
				c.Put("shared", "computed")
			}
		}()
	}
	wg.Wait()

	got, hit := c.Get("shared")
	require.True(t, hit)
	assert.Equal(t, "computed", got)
	assert.Equal(t, 1, c.Len())
}
