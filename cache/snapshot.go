package cache

import (
	"sync/atomic"
	"time"
)

type snapshotState[T any] struct {
	value   T
	builtAt time.Time
}

// Snapshot is a single-value cache published by copy-on-write swap: a new
// value is built off to the side and then installed atomically, so in-flight
// readers always see either the complete old snapshot or the complete new
// one, never a partial update.
//
// A TTL of zero or less means the snapshot never goes stale.
type Snapshot[T any] struct {
	state atomic.Pointer[snapshotState[T]]
	ttl   time.Duration
	clock Clock

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSnapshot creates an empty snapshot cache.
func NewSnapshot[T any](ttl time.Duration, opts ...Option) *Snapshot[T] {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return &Snapshot[T]{ttl: ttl, clock: o.clock}
}

// Get returns the current snapshot. ok is false when no snapshot has been
// published yet or the published one is past its TTL; the stale value is
// left in place so readers racing a refresh still have something coherent
// to fall back on.
func (s *Snapshot[T]) Get() (T, bool) {
	state := s.state.Load()
	if state == nil {
		s.misses.Add(1)
		var zero T
		return zero, false
	}
	if s.ttl > 0 && s.clock().Sub(state.builtAt) >= s.ttl {
		s.misses.Add(1)
		return state.value, false
	}
	s.hits.Add(1)
	return state.value, true
}

// Set atomically publishes a freshly built snapshot.
func (s *Snapshot[T]) Set(value T) {
	s.state.Store(&snapshotState[T]{value: value, builtAt: s.clock()})
}

// Invalidate drops the current snapshot so the next Get misses.
func (s *Snapshot[T]) Invalidate() {
	s.state.Store(nil)
}

// Stats reports hit/miss counters. Entries is 1 when a snapshot is
// published, 0 otherwise, regardless of staleness.
func (s *Snapshot[T]) Stats() Stats {
	entries := 0
	if s.state.Load() != nil {
		entries = 1
	}
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: entries,
	}
}
