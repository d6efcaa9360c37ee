package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultShardCount    = 16
	defaultShardCapacity = 1024

	// sweepEvery triggers an opportunistic sweep of the written shard once
	// per this many puts, so expired entries are reclaimed even without a
	// background sweeper.
	sweepEvery = 64
)

// Clock returns the current time. Tests substitute a controllable clock to
// exercise TTL behavior without sleeping.
type Clock func() time.Time

// Hasher maps a key to a shard. It only spreads load; key identity inside a
// shard uses the key value itself.
type Hasher[K comparable] func(K) uint64

// StringHasher hashes string keys with FNV-1a.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Uint64Hasher passes integer-shaped keys (IDs) through directly.
func Uint64Hasher[K ~uint64](k K) uint64 {
	return uint64(k)
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries *lru.Cache[K, entry[V]]
}

// TTLCache is a sharded in-memory cache with per-entry TTL and a bounded
// capacity per shard (LRU eviction). Operations on keys in different shards
// never serialize against each other. A same-key check-then-store race is
// benign: both callers compute the same deterministic value and the second
// Put simply refreshes the timestamp.
//
// A TTL of zero or less means entries never expire.
type TTLCache[K comparable, V any] struct {
	shards []*shard[K, V]
	hasher Hasher[K]
	ttl    time.Duration
	clock  Clock

	hits   atomic.Int64
	misses atomic.Int64
	puts   atomic.Int64
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	shardCount int
	capacity   int
	clock      Clock
}

// WithClock substitutes the time source. Default is time.Now.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithShardCount sets the number of shards. Default is 16.
func WithShardCount(count int) Option {
	return func(o *options) {
		if count > 0 {
			o.shardCount = count
		}
	}
}

// WithCapacity sets the total entry capacity, split evenly across shards.
// Default is 16384. When a shard fills, its least recently used entry is
// evicted.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// New creates a TTLCache. The hasher spreads keys across shards; use
// StringHasher for string keys and Uint64Hasher for ID keys.
func New[K comparable, V any](hasher Hasher[K], ttl time.Duration, opts ...Option) (*TTLCache[K, V], error) {
	if hasher == nil {
		return nil, ErrHasherRequired
	}

	o := &options{
		shardCount: defaultShardCount,
		capacity:   defaultShardCount * defaultShardCapacity,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	perShard := o.capacity / o.shardCount
	if perShard < 1 {
		perShard = 1
	}

	shards := make([]*shard[K, V], o.shardCount)
	for i := range shards {
		entries, err := lru.New[K, entry[V]](perShard)
		if err != nil {
			return nil, err
		}
		shards[i] = &shard[K, V]{entries: entries}
	}

	return &TTLCache[K, V]{
		shards: shards,
		hasher: hasher,
		ttl:    ttl,
		clock:  o.clock,
	}, nil
}

func (c *TTLCache[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)%uint64(len(c.shards))]
}

func (c *TTLCache[K, V]) expired(e entry[V], now time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return now.Sub(e.insertedAt) >= c.ttl
}

// Get returns the cached value for key. The second return is false both for
// keys that were never set and for entries past their TTL; the two are
// indistinguishable to the caller. Expired entries are deleted lazily here.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)
	now := c.clock()

	s.mu.Lock()
	e, ok := s.entries.Get(key)
	if ok && c.expired(e, now) {
		s.entries.Remove(key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key, overwriting any previous entry and resetting
// its insertion timestamp.
func (c *TTLCache[K, V]) Put(key K, value V) {
	s := c.shardFor(key)
	now := c.clock()

	s.mu.Lock()
	s.entries.Add(key, entry[V]{value: value, insertedAt: now})
	s.mu.Unlock()

	if c.puts.Add(1)%sweepEvery == 0 {
		c.sweepShard(s, now)
	}
}

// GetOrPut returns the live value for key if present; otherwise it stores
// value and returns it. The check and store happen under one shard lock, so
// concurrent callers racing on an absent key agree on a single winner.
// loaded is true when an existing entry was returned.
func (c *TTLCache[K, V]) GetOrPut(key K, value V) (actual V, loaded bool) {
	s := c.shardFor(key)
	now := c.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Get(key)
	if ok && c.expired(e, now) {
		s.entries.Remove(key)
		ok = false
	}
	if ok {
		return e.value, true
	}
	s.entries.Add(key, entry[V]{value: value, insertedAt: now})
	return value, false
}

// Touch resets the insertion timestamp of a live entry, extending its TTL
// window. It reports whether the key was present and live.
func (c *TTLCache[K, V]) Touch(key K) bool {
	s := c.shardFor(key)
	now := c.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Get(key)
	if !ok {
		return false
	}
	if c.expired(e, now) {
		s.entries.Remove(key)
		return false
	}
	e.insertedAt = now
	s.entries.Add(key, e)
	return true
}

// Delete removes key immediately, bypassing TTL.
func (c *TTLCache[K, V]) Delete(key K) {
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries.Remove(key)
	s.mu.Unlock()
}

// Sweep removes all expired entries and returns how many were evicted.
func (c *TTLCache[K, V]) Sweep() int {
	now := c.clock()
	evicted := 0
	for _, s := range c.shards {
		evicted += c.sweepShard(s, now)
	}
	return evicted
}

func (c *TTLCache[K, V]) sweepShard(s *shard[K, V], now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for _, key := range s.entries.Keys() {
		if e, ok := s.entries.Peek(key); ok && c.expired(e, now) {
			s.entries.Remove(key)
			evicted++
		}
	}
	return evicted
}

// Range calls fn for every live (non-expired) entry until fn returns false.
// The iteration order is unspecified. Expired entries are skipped but not
// deleted; they fall to the next sweep.
func (c *TTLCache[K, V]) Range(fn func(key K, value V) bool) {
	now := c.clock()
	for _, s := range c.shards {
		s.mu.Lock()
		keys := s.entries.Keys()
		live := make([]entry[V], 0, len(keys))
		liveKeys := make([]K, 0, len(keys))
		for _, key := range keys {
			if e, ok := s.entries.Peek(key); ok && !c.expired(e, now) {
				live = append(live, e)
				liveKeys = append(liveKeys, key)
			}
		}
		s.mu.Unlock()

		// fn runs outside the shard lock so callers can take their own locks.
		for i := range live {
			if !fn(liveKeys[i], live[i].value) {
				return
			}
		}
	}
}

// Len returns the number of live entries.
func (c *TTLCache[K, V]) Len() int {
	count := 0
	c.Range(func(K, V) bool {
		count++
		return true
	})
	return count
}

// Purge drops every entry and leaves counters untouched.
func (c *TTLCache[K, V]) Purge() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries.Purge()
		s.mu.Unlock()
	}
}

// Stats reports hit/miss counters and the current live entry count.
func (c *TTLCache[K, V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}
