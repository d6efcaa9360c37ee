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


package badger

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) (*EntityRepository, error) {
	idSeq, err := backend.GetSequence(entityIDSeq)
	if err != nil {
		return nil, err
	}

	return &EntityRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *EntityRepository) Close() error {
	return r.idSeq.Release()
}

// AddEntities adds one or more entities to storage.
func (r *EntityRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}

			if entity.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				// BadgerDB sequences can return 0 on first call, so we skip it
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				entity.Id = core.ID(nextID)
			}

			if entity.InsertedAt.IsZero() {
				entity.InsertedAt = time.Now().UTC()
			}
			entity.UpdatedAt = entity.InsertedAt

			if err := r.writeEntity(tx, entity); err != nil {
				return err
			}

			catKey := makeCategoryKey(entity.Category, entity.Id)
			if err := tx.Set(catKey, storage.MarshalID(entity.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entities, err
}

// UpdateEntities updates existing entities.
func (r *EntityRepository) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}

			key := makeEntityKey(entity.Id)
			old, err := r.readEntity(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			entity.InsertedAt = old.InsertedAt
			entity.UpdatedAt = time.Now().UTC()

			if err := r.writeEntity(tx, entity); err != nil {
				return err
			}

			// Move the category index entry if the category changed
			if old.Category != entity.Category {
				if err := tx.Delete(makeCategoryKey(old.Category, old.Id)); err != nil {
					return err
				}
				catKey := makeCategoryKey(entity.Category, entity.Id)
				if err := tx.Set(catKey, storage.MarshalID(entity.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return entities, err
}

// DeleteEntities removes entities by their IDs.
func (r *EntityRepository) DeleteEntities(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntityKey(id)

			entity, err := r.readEntity(tx, key)
			if err != nil {
				return err
			}
			if entity == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeCategoryKey(entity.Category, entity.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEntityKey(id)
		var err error
		result, err = r.readEntity(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var result []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntityKey(id)
			entity, err := r.readEntity(tx, key)
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// FetchByCategory retrieves entities whose category matches exactly.
// Results come back in ID order via the category index.
func (r *EntityRepository) FetchByCategory(ctx context.Context, category string, limit int) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialCategoryKey(category)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}

			var entityID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				entityID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			entity, err := r.readEntity(tx, makeEntityKey(entityID))
			if err != nil {
				return err
			}
			if entity != nil {
				results = append(results, entity)
			}
		}
		return nil
	}, false)

	return results, err
}

// FetchByKeyword retrieves entities whose text fields contain the given text,
// case-insensitively. Scans every entity record; key order makes the result
// order stable across identical calls.
func (r *EntityRepository) FetchByKeyword(ctx context.Context, text string, limit int) ([]*core.Entity, error) {
	needle := strings.ToLower(strings.TrimSpace(text))

	var results []*core.Entity
	err := r.scanEntities(func(entity *core.Entity) bool {
		if needle == "" || entityContains(entity, needle) {
			results = append(results, entity)
		}
		return limit <= 0 || len(results) < limit
	})

	return results, err
}

// All retrieves every entity.
func (r *EntityRepository) All(ctx context.Context) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.scanEntities(func(entity *core.Entity) bool {
		results = append(results, entity)
		return true
	})
	return results, err
}

// Helper methods

// scanEntities iterates all primary entity records in key order, calling fn
// for each. fn returns false to stop early.
func (r *EntityRepository) scanEntities(fn func(*core.Entity) bool) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.Key()

			// Skip the sequence key, which shares the record prefix
			if bytes.Equal(key, []byte(entityIDSeq)) {
				continue
			}

			var entity *core.Entity
			err := item.Value(func(val []byte) error {
				var err error
				entity, err = storage.UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return err
			}
			if entity == nil {
				continue
			}
			if !fn(entity) {
				break
			}
		}
		return nil
	}, false)
}

// readEntity reads an entity from the transaction.
func (r *EntityRepository) readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		entity, unmarshalErr = storage.UnmarshalEntity(val)
		return unmarshalErr
	})
	return entity, err
}

// writeEntity stores the primary record for an entity.
func (r *EntityRepository) writeEntity(tx *badger.Txn, entity *core.Entity) error {
	key := makeEntityKey(entity.Id)
	return tx.Set(key, storage.MarshalEntity(entity))
}

// entityContains reports whether any text field of the entity contains the
// lowercased needle.
func entityContains(entity *core.Entity, needle string) bool {
	return strings.Contains(strings.ToLower(entity.Name), needle) ||
		strings.Contains(strings.ToLower(entity.Category), needle) ||
		strings.Contains(strings.ToLower(entity.Description), needle) ||
		strings.Contains(strings.ToLower(entity.Address), needle)
}
