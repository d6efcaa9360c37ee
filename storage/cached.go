// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/core"
)

// DefaultSnapshotTTL is how long a published entity snapshot stays fresh.
const DefaultSnapshotTTL = 5 * time.Minute

// SnapshotRepository decorates an EntityRepository with an in-memory
// copy-on-write snapshot of the whole store. Fetches are served from the
// snapshot without touching the backing store; the snapshot is rebuilt when
// its TTL lapses and invalidated on every write.
//
// If a rebuild fails and a previous snapshot exists, fetches fall back to the
// stale snapshot rather than failing the query.
type SnapshotRepository struct {
	inner  EntityRepository
	snap   *cache.Snapshot[[]*core.Entity]
	logger *slog.Logger

	// Serializes rebuilds so a burst of cold reads issues one All().
	refreshMu sync.Mutex
}

var _ EntityRepository = (*SnapshotRepository)(nil)

// SnapshotOption configures a SnapshotRepository.
type SnapshotOption func(*snapshotOptions)

type snapshotOptions struct {
	ttl    time.Duration
	clock  cache.Clock
	logger *slog.Logger
}

// WithSnapshotTTL overrides the snapshot freshness window.
func WithSnapshotTTL(ttl time.Duration) SnapshotOption {
	return func(o *snapshotOptions) {
		o.ttl = ttl
	}
}

// WithSnapshotClock injects a clock, mainly for tests.
func WithSnapshotClock(clock cache.Clock) SnapshotOption {
	return func(o *snapshotOptions) {
		o.clock = clock
	}
}

// WithSnapshotLogger sets the logger for snapshot refresh events.
func WithSnapshotLogger(logger *slog.Logger) SnapshotOption {
	return func(o *snapshotOptions) {
		o.logger = logger
	}
}

// NewSnapshotRepository wraps inner with a snapshot cache.
func NewSnapshotRepository(inner EntityRepository, opts ...SnapshotOption) *SnapshotRepository {
	o := &snapshotOptions{
		ttl:    DefaultSnapshotTTL,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &SnapshotRepository{
		inner:  inner,
		snap:   cache.NewSnapshot[[]*core.Entity](o.ttl, cache.WithClock(o.clock)),
		logger: o.logger.With("component", "snapshot_repository"),
	}
}

// Refresh rebuilds the snapshot from the backing store immediately.
func (r *SnapshotRepository) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	return r.rebuild(ctx)
}

// rebuild loads everything from the backing store and publishes it.
// Caller must hold refreshMu.
func (r *SnapshotRepository) rebuild(ctx context.Context) error {
	entities, err := r.inner.All(ctx)
	if err != nil {
		return err
	}
	r.snap.Set(entities)
	r.logger.Debug("entity snapshot rebuilt", "entities", len(entities))
	return nil
}

// entities returns the current snapshot, rebuilding it if stale. A stale
// snapshot is returned as-is when the rebuild fails.
func (r *SnapshotRepository) entities(ctx context.Context) ([]*core.Entity, error) {
	if snap, ok := r.snap.Get(); ok {
		return snap, nil
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// Another goroutine may have rebuilt while we waited on the lock.
	if snap, ok := r.snap.Get(); ok {
		return snap, nil
	}

	if err := r.rebuild(ctx); err != nil {
		// Serve the stale snapshot if one was ever published.
		if stale, published := r.stale(); published {
			r.logger.Warn("snapshot rebuild failed, serving stale snapshot", "error", err)
			return stale, nil
		}
		return nil, err
	}

	snap, _ := r.snap.Get()
	return snap, nil
}

// stale returns the last published snapshot regardless of freshness.
func (r *SnapshotRepository) stale() ([]*core.Entity, bool) {
	if r.snap.Stats().Entries == 0 {
		return nil, false
	}
	snap, _ := r.snap.Get()
	return snap, true
}

// FetchByCategory serves category fetches from the snapshot.
func (r *SnapshotRepository) FetchByCategory(ctx context.Context, category string, limit int) ([]*core.Entity, error) {
	snap, err := r.entities(ctx)
	if err != nil {
		return nil, err
	}

	var results []*core.Entity
	for _, entity := range snap {
		if entity.Category != category {
			continue
		}
		results = append(results, entity)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// FetchByKeyword serves keyword fetches from the snapshot.
func (r *SnapshotRepository) FetchByKeyword(ctx context.Context, text string, limit int) ([]*core.Entity, error) {
	snap, err := r.entities(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(text))

	var results []*core.Entity
	for _, entity := range snap {
		if needle != "" && !snapshotContains(entity, needle) {
			continue
		}
		results = append(results, entity)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// All returns the snapshot contents.
func (r *SnapshotRepository) All(ctx context.Context) ([]*core.Entity, error) {
	snap, err := r.entities(ctx)
	if err != nil {
		return nil, err
	}
	// Callers get their own slice; the snapshot itself is shared.
	out := make([]*core.Entity, len(snap))
	copy(out, snap)
	return out, nil
}

// AddEntities writes through and invalidates the snapshot.
func (r *SnapshotRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	added, err := r.inner.AddEntities(ctx, entities...)
	if err != nil {
		return added, err
	}
	r.snap.Invalidate()
	return added, nil
}

// UpdateEntities writes through and invalidates the snapshot.
func (r *SnapshotRepository) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	updated, err := r.inner.UpdateEntities(ctx, entities...)
	if err != nil {
		return updated, err
	}
	r.snap.Invalidate()
	return updated, nil
}

// DeleteEntities writes through and invalidates the snapshot.
func (r *SnapshotRepository) DeleteEntities(ctx context.Context, ids ...core.ID) error {
	if err := r.inner.DeleteEntities(ctx, ids...); err != nil {
		return err
	}
	r.snap.Invalidate()
	return nil
}

// GetEntity delegates point reads to the backing store.
func (r *SnapshotRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	return r.inner.GetEntity(ctx, id)
}

// GetEntities delegates point reads to the backing store.
func (r *SnapshotRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	return r.inner.GetEntities(ctx, ids...)
}

// Close closes the backing store.
func (r *SnapshotRepository) Close() error {
	return r.inner.Close()
}

// CacheStats reports snapshot hit/miss counters.
func (r *SnapshotRepository) CacheStats() cache.Stats {
	return r.snap.Stats()
}

func snapshotContains(entity *core.Entity, needle string) bool {
	return strings.Contains(strings.ToLower(entity.Name), needle) ||
		strings.Contains(strings.ToLower(entity.Category), needle) ||
		strings.Contains(strings.ToLower(entity.Description), needle) ||
		strings.Contains(strings.ToLower(entity.Address), needle)
}
