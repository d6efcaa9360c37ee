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


package wayfarer

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/ai/openai"
	"github.com/poiesic/wayfarer/classify"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/engine"
	"github.com/poiesic/wayfarer/ingest"
	"github.com/poiesic/wayfarer/storage"
	"github.com/poiesic/wayfarer/storage/badger"
)

// DefaultSweepInterval is how often the background sweeper evicts expired
// cache entries and conversations.
const DefaultSweepInterval = time.Minute

// Assistant is the top-level facade: it opens the entity store, wires the
// snapshot decorator, embedder and engine together, and runs a background
// sweep ticker. It is the single object the request-handling layer holds.
type Assistant struct {
	backend    *badger.Backend
	entityRepo storage.EntityRepository
	repo       *storage.SnapshotRepository
	embedder   ai.Embedder
	engine     *engine.Engine
	logger     *slog.Logger

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	aiConfig      *ai.Config
	embedder      ai.Embedder
	engineOpts    []engine.Option
	snapshotTTL   time.Duration
	sweepInterval time.Duration
	inMemory      bool
}

// WithAIConfig sets the embedding service configuration.
// Ignored when WithEmbedder is also given.
func WithAIConfig(config *ai.Config) AssistantOption {
	return func(o *assistantOptions) {
		o.aiConfig = config
	}
}

// WithEmbedder injects an embedder directly, bypassing the OpenAI client.
func WithEmbedder(embedder ai.Embedder) AssistantOption {
	return func(o *assistantOptions) {
		o.embedder = embedder
	}
}

// WithEngineOptions forwards options to the underlying engine.
func WithEngineOptions(opts ...engine.Option) AssistantOption {
	return func(o *assistantOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// WithSnapshotTTL sets the entity snapshot freshness window.
func WithSnapshotTTL(ttl time.Duration) AssistantOption {
	return func(o *assistantOptions) {
		o.snapshotTTL = ttl
	}
}

// WithSweepInterval sets the background sweep cadence. Zero disables the
// sweeper; expired entries are still evicted lazily on read.
func WithSweepInterval(interval time.Duration) AssistantOption {
	return func(o *assistantOptions) {
		o.sweepInterval = interval
	}
}

// WithInMemory opens the store in memory instead of on disk.
func WithInMemory() AssistantOption {
	return func(o *assistantOptions) {
		o.inMemory = true
	}
}

// New opens the entity store at filePath and wires the full pipeline.
func New(filePath string, opts ...AssistantOption) (*Assistant, error) {
	o := &assistantOptions{
		aiConfig:      ai.DefaultConfig(),
		snapshotTTL:   storage.DefaultSnapshotTTL,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(o)
	}

	backend, err := badger.OpenBackend(filePath, o.inMemory)
	if err != nil {
		return nil, err
	}

	entityRepo, err := badger.NewEntityRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	repo := storage.NewSnapshotRepository(entityRepo,
		storage.WithSnapshotTTL(o.snapshotTTL))

	embedder := o.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(o.aiConfig)
		if err != nil {
			entityRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	eng, err := engine.New(repo, embedder, o.engineOpts...)
	if err != nil {
		entityRepo.Close()
		backend.Close()
		return nil, err
	}

	a := &Assistant{
		backend:    backend,
		entityRepo: entityRepo,
		repo:       repo,
		embedder:   embedder,
		engine:     eng,
		logger:     slog.Default().With("component", "wayfarer"),
	}

	if o.sweepInterval > 0 {
		a.sweepStop = make(chan struct{})
		a.sweepDone = make(chan struct{})
		go a.sweepLoop(o.sweepInterval)
	}

	return a, nil
}

// sweepLoop evicts expired cache entries until Close.
func (a *Assistant) sweepLoop(interval time.Duration) {
	defer close(a.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := a.engine.Sweep(); evicted > 0 {
				a.logger.Debug("swept expired entries", "evicted", evicted)
			}
		case <-a.sweepStop:
			return
		}
	}
}

// Classify determines the category filter and primary-only flag for a query.
func (a *Assistant) Classify(query string) classify.Intent {
	return a.engine.Classify(query)
}

// Resolve runs the cached retrieval pipeline for a query.
func (a *Assistant) Resolve(ctx context.Context, query string, limit int, categoryOverride string) ([]core.RankedResult, error) {
	return a.engine.Resolve(ctx, query, limit, categoryOverride)
}

// Remember appends a turn to the user's conversation.
func (a *Assistant) Remember(userID string, speaker core.SpeakerType, contents string) error {
	return a.engine.Remember(userID, speaker, contents)
}

// Recall returns up to maxTurns of the user's most recent turns.
func (a *Assistant) Recall(userID string, maxTurns int) []core.Turn {
	return a.engine.Recall(userID, maxTurns)
}

// Forget deletes the user's conversation immediately.
func (a *Assistant) Forget(userID string) {
	a.engine.Forget(userID)
}

// CacheStats reports per-cache hit/miss counters and conversation counts.
func (a *Assistant) CacheStats() engine.Stats {
	return a.engine.CacheStats()
}

// Repository exposes the snapshot-decorated entity repository.
func (a *Assistant) Repository() storage.EntityRepository {
	return a.repo
}

// NewIngestPipeline creates a seeding pipeline over the same store. Writes
// go through the snapshot decorator, so seeding invalidates the snapshot.
func (a *Assistant) NewIngestPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(a.repo, a.embedder, opts...)
}

// Close stops the sweeper and releases the engine and the store.
func (a *Assistant) Close() error {
	if a.sweepStop != nil {
		close(a.sweepStop)
		<-a.sweepDone
	}

	if err := a.engine.Close(); err != nil {
		a.logger.Error("error closing engine", "err", err)
	}
	if err := a.entityRepo.Close(); err != nil {
		a.logger.Error("error closing entity repository", "err", err)
		return err
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
