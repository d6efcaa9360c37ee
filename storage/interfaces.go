package storage

import (
	"context"

	"github.com/poiesic/wayfarer/core"
)

// EntityRepository provides operations for managing points of interest.
// Implementations must be thread-safe and support concurrent access.
//
// Fetch results come back in a stable (if arbitrary) order: two identical
// fetches against unchanged data return entities in the same order, which
// keeps downstream ranking deterministic.
type EntityRepository interface {
	// AddEntities adds one or more entities to storage.
	// For entities with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the entities with generated IDs and timestamps populated.
	AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// UpdateEntities updates existing entities.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any entity doesn't exist.
	UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// DeleteEntities removes entities by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any entity doesn't exist.
	DeleteEntities(ctx context.Context, ids ...core.ID) error

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntities retrieves multiple entities by their IDs.
	// Returns only the entities that exist (no error for missing entities).
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// FetchByCategory retrieves entities whose category matches exactly.
	// Returns up to limit entities; limit <= 0 means no limit.
	FetchByCategory(ctx context.Context, category string, limit int) ([]*core.Entity, error)

	// FetchByKeyword retrieves entities whose text fields contain the given
	// text, case-insensitively. Returns up to limit entities; limit <= 0
	// means no limit. Empty text matches everything.
	FetchByKeyword(ctx context.Context, text string, limit int) ([]*core.Entity, error)

	// All retrieves every entity. Used to build whole-store snapshots.
	All(ctx context.Context) ([]*core.Entity, error)

	// Close closes the repository and releases resources.
	Close() error
}
