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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

const defaultBatchSize = 16

// Pipeline seeds the entity store: it embeds point-of-interest text in
// concurrent batches and writes the finished entities through the
// repository. Seeding is the only write path of the system; the query
// pipeline treats entities as read-only.
type Pipeline struct {
	repository storage.EntityRepository
	embedder   ai.Embedder
	pool       *ants.Pool
	batchSize  int
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many entities go into one embedding request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.batchSize = size
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a seeding pipeline.
func NewPipeline(repository storage.EntityRepository, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository: repository,
		embedder:   embedder,
		pool:       pool,
		batchSize:  defaultBatchSize,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingest")

	return p, nil
}

// Seed embeds and stores the given entities, returning them with IDs and
// vectors populated. Embedding runs in concurrent batches; the storage
// write happens once, after every batch succeeded. Entities that already
// carry a vector are embedded again so stale vectors cannot survive a
// reseed.
func (p *Pipeline) Seed(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	p.logger.Info("seeding entities", "entities", len(entities))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for start := 0; start < len(entities); start += p.batchSize {
		end := start + p.batchSize
		if end > len(entities) {
			end = len(entities)
		}
		batch := entities[start:end]

		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := p.embedBatch(ctx, batch); err != nil {
				fail(err)
			}
		}
		if err := p.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return p.repository.AddEntities(ctx, entities...)
}

// embedBatch fills in the vectors for one batch of entities.
func (p *Pipeline) embedBatch(ctx context.Context, batch []*core.Entity) error {
	texts := make([]string, len(batch))
	for i, entity := range batch {
		texts[i] = embeddingText(entity)
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("%w: expected %d, received %d",
			ErrEmbeddingMismatch, len(batch), len(embeddings))
	}

	for i := range batch {
		batch[i].Vector = embeddings[i]
	}
	return nil
}

// embeddingText is the canonical text an entity is embedded from. Keeping
// it stable matters: the same entity must embed to the same vector across
// reseeds.
func embeddingText(entity *core.Entity) string {
	return entity.Name + ". " + entity.Description
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
