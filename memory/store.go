package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/core"
)

const (
	// DefaultMaxTurns caps a conversation at 10 exchanges (20 turns).
	// On overflow the oldest turns are dropped FIFO.
	DefaultMaxTurns = 20

	// DefaultTTL expires conversations idle for 30 minutes.
	DefaultTTL = 30 * time.Minute
)

// Stats aggregates conversation counts, excluding expired records.
type Stats struct {
	ActiveConversations int
	TotalTurns          int
}

// conversation holds one user's bounded turn history. The containing cache
// entry's timestamp doubles as the last-active marker: every append touches
// it, and expiry makes the whole record logically absent.
type conversation struct {
	mu    sync.Mutex
	turns []core.Turn
}

// Store is the bounded per-user conversation memory.
//
// Operations on different users never serialize against each other; a
// single user's turns are guarded by that conversation's own mutex.
type Store struct {
	conversations *cache.TTLCache[string, *conversation]
	maxTurns      int
	clock         cache.Clock
	logger        *slog.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	maxTurns int
	ttl      time.Duration
	clock    cache.Clock
	logger   *slog.Logger
}

// WithMaxTurns sets the per-conversation turn cap. Default is 20.
func WithMaxTurns(maxTurns int) Option {
	return func(o *storeOptions) {
		if maxTurns > 0 {
			o.maxTurns = maxTurns
		}
	}
}

// WithTTL sets the idle expiry window. Default is 30 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(o *storeOptions) {
		o.ttl = ttl
	}
}

// WithClock substitutes the time source. Default is time.Now.
func WithClock(clock cache.Clock) Option {
	return func(o *storeOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewStore creates a conversation memory store.
func NewStore(opts ...Option) (*Store, error) {
	o := &storeOptions{
		maxTurns: DefaultMaxTurns,
		ttl:      DefaultTTL,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	conversations, err := cache.New[string, *conversation](
		cache.StringHasher, o.ttl, cache.WithClock(o.clock))
	if err != nil {
		return nil, err
	}

	return &Store{
		conversations: conversations,
		maxTurns:      o.maxTurns,
		clock:         o.clock,
		logger:        o.logger.With("component", "memory"),
	}, nil
}

// Append adds a turn to the user's conversation, creating the record if
// absent, trimming to the turn cap, and refreshing the last-active
// timestamp.
func (s *Store) Append(userID string, speaker core.SpeakerType, contents string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	turn := core.Turn{
		Speaker:   speaker,
		Contents:  contents,
		Timestamp: s.clock().UTC(),
	}
	if err := core.ValidateTurn(&turn); err != nil {
		return err
	}

	conv, _ := s.conversations.GetOrPut(userID, &conversation{})

	conv.mu.Lock()
	conv.turns = append(conv.turns, turn)
	if overflow := len(conv.turns) - s.maxTurns; overflow > 0 {
		conv.turns = conv.turns[overflow:]
	}
	conv.mu.Unlock()

	// Appending counts as activity: reset the expiry window.
	s.conversations.Touch(userID)

	s.logger.Debug("appended turn", "userID", userID, "speaker", int(speaker))
	return nil
}

// History returns up to maxTurns of the user's most recent turns, oldest
// first. An absent or expired conversation yields an empty slice.
func (s *Store) History(userID string, maxTurns int) []core.Turn {
	conv, hit := s.conversations.Get(userID)
	if !hit {
		return []core.Turn{}
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	turns := conv.turns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	out := make([]core.Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear deletes the user's conversation immediately, bypassing TTL.
func (s *Store) Clear(userID string) {
	s.conversations.Delete(userID)
	s.logger.Debug("cleared conversation", "userID", userID)
}

// Stats counts active conversations and their total turns. Expired records
// are excluded, which makes this a logical sweep of the store.
func (s *Store) Stats() Stats {
	stats := Stats{}
	s.conversations.Range(func(_ string, conv *conversation) bool {
		conv.mu.Lock()
		turns := len(conv.turns)
		conv.mu.Unlock()

		stats.ActiveConversations++
		stats.TotalTurns += turns
		return true
	})
	return stats
}

// Sweep physically removes expired conversations and returns the count.
func (s *Store) Sweep() int {
	return s.conversations.Sweep()
}

// CacheStats exposes the underlying cache counters.
func (s *Store) CacheStats() cache.Stats {
	return s.conversations.Stats()
}
