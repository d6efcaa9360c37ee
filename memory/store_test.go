package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func newTestStore(t *testing.T, clock *fakeClock, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	store, err := NewStore(opts...)
	require.NoError(t, err)
	return store
}

func TestAppend(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	t.Run("creates record on first turn", func(t *testing.T) {
		require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, "any temples nearby?"))
		turns := store.History("u1", 0)
		require.Len(t, turns, 1)
		assert.Equal(t, "any temples nearby?", turns[0].Contents)
		assert.Equal(t, core.SpeakerTypeHuman, turns[0].Speaker)
	})

	t.Run("empty user ID rejected", func(t *testing.T) {
		err := store.Append("", core.SpeakerTypeHuman, "hi")
		assert.Equal(t, ErrUserIDRequired, err)
	})

	t.Run("empty contents rejected", func(t *testing.T) {
		err := store.Append("u1", core.SpeakerTypeHuman, "")
		assert.ErrorIs(t, err, core.ErrEmptyContent)
	})

	t.Run("invalid speaker rejected", func(t *testing.T) {
		err := store.Append("u1", core.SpeakerType(9), "hi")
		assert.ErrorIs(t, err, core.ErrInvalidSpeakerType)
	})
}

func TestAppend_TrimsToCap(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	// 25 appends against a 20-turn cap: turns 1-5 drop, 6-25 remain.
	for i := 1; i <= 25; i++ {
		require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, fmt.Sprintf("turn %d", i)))
	}

	turns := store.History("u1", 20)
	require.Len(t, turns, 20)
	assert.Equal(t, "turn 6", turns[0].Contents)
	assert.Equal(t, "turn 25", turns[19].Contents)
}

func TestHistory(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	for i := 1; i <= 6; i++ {
		require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, fmt.Sprintf("turn %d", i)))
	}

	t.Run("limits to most recent maxTurns", func(t *testing.T) {
		turns := store.History("u1", 2)
		require.Len(t, turns, 2)
		assert.Equal(t, "turn 5", turns[0].Contents)
		assert.Equal(t, "turn 6", turns[1].Contents)
	})

	t.Run("zero maxTurns returns everything", func(t *testing.T) {
		assert.Len(t, store.History("u1", 0), 6)
	})

	t.Run("absent user yields empty slice", func(t *testing.T) {
		turns := store.History("nobody", 10)
		assert.NotNil(t, turns)
		assert.Empty(t, turns)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		turns := store.History("u1", 0)
		turns[0].Contents = "mutated"
		assert.Equal(t, "turn 1", store.History("u1", 0)[0].Contents)
	})
}

func TestHistory_Expiry(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock, WithTTL(30*time.Minute))

	require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, "hello"))

	clock.Advance(29 * time.Minute)
	assert.Len(t, store.History("u1", 0), 1)

	clock.Advance(2 * time.Minute)
	assert.Empty(t, store.History("u1", 0))
}

func TestAppend_RefreshesExpiry(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock, WithTTL(30*time.Minute))

	require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, "first"))
	clock.Advance(20 * time.Minute)
	require.NoError(t, store.Append("u1", core.SpeakerTypeAI, "second"))
	clock.Advance(20 * time.Minute)

	// 40 minutes after the first turn, 20 after the last: still active.
	assert.Len(t, store.History("u1", 0), 2)
}

func TestClear(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, "hello"))
	store.Clear("u1")
	assert.Empty(t, store.History("u1", 0))

	// Clearing an absent user is a no-op.
	store.Clear("nobody")
}

func TestStats(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock, WithTTL(30*time.Minute))

	require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, "a"))
	require.NoError(t, store.Append("u1", core.SpeakerTypeAI, "b"))
	clock.Advance(25 * time.Minute)
	require.NoError(t, store.Append("u2", core.SpeakerTypeHuman, "c"))

	stats := store.Stats()
	assert.Equal(t, 2, stats.ActiveConversations)
	assert.Equal(t, 3, stats.TotalTurns)

	// u1 expires; stats must exclude it without an explicit sweep.
	clock.Advance(10 * time.Minute)
	stats = store.Stats()
	assert.Equal(t, 1, stats.ActiveConversations)
	assert.Equal(t, 1, stats.TotalTurns)
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock, WithTTL(30*time.Minute))

	require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, "a"))
	require.NoError(t, store.Append("u2", core.SpeakerTypeHuman, "b"))
	clock.Advance(31 * time.Minute)
	require.NoError(t, store.Append("u3", core.SpeakerTypeHuman, "c"))

	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 1, store.Stats().ActiveConversations)
}

func TestStore_ConcurrentUsers(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)

	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", u)
			for i := 0; i < 100; i++ {
				_ = store.Append(userID, core.SpeakerTypeHuman, fmt.Sprintf("turn %d", i))
				store.History(userID, 10)
			}
		}(u)
	}
	wg.Wait()

	stats := store.Stats()
	assert.Equal(t, 8, stats.ActiveConversations)
	// Each user capped at DefaultMaxTurns.
	assert.Equal(t, 8*DefaultMaxTurns, stats.TotalTurns)
}

func TestStore_ConcurrentSameUser(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock, WithMaxTurns(200))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = store.Append("shared", core.SpeakerTypeHuman, "turn")
			}
		}()
	}
	wg.Wait()

	// No appends may be lost to a create race.
	assert.Len(t, store.History("shared", 0), 100)
}

func TestStore_CustomMaxTurns(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock, WithMaxTurns(4))

	for i := 1; i <= 10; i++ {
		require.NoError(t, store.Append("u1", core.SpeakerTypeHuman, fmt.Sprintf("turn %d", i)))
	}
	turns := store.History("u1", 0)
	require.Len(t, turns, 4)
	assert.Equal(t, "turn 7", turns[0].Contents)
}
