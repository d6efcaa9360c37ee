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


package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/classify"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/memory"
	"github.com/poiesic/wayfarer/rank"
	"github.com/poiesic/wayfarer/storage"
)

const (
	// DefaultResultTTL bounds how long a ranked result list is served from
	// cache before the pipeline runs again.
	DefaultResultTTL = 5 * time.Minute

	// DefaultFetchLimit caps how many candidates one query pulls from the
	// entity store before scoring.
	DefaultFetchLimit = 200

	// DefaultPoolSize is the scoring worker pool size.
	DefaultPoolSize = 8
)

// Engine runs the retrieval pipeline: classify the query, check the
// query-result cache, fetch candidates, score them in parallel, rank, cache
// and return. It also owns the per-user conversation memory.
//
// Scoring is pure and shares no mutable state, so any number of Resolve
// calls may run concurrently. Two callers missing the same cache key will
// both compute the same deterministic result; the second Put is a no-op in
// effect.
type Engine struct {
	repo       storage.EntityRepository
	embedder   ai.Embedder
	classifier *classify.Classifier
	ranker     *rank.Ranker
	memory     *memory.Store
	results    *cache.TTLCache[core.ID, []core.RankedResult]
	pool       *ants.Pool
	fetchLimit int
	logger     *slog.Logger
}

// Stats aggregates counters across the engine's caches.
type Stats struct {
	QueryResults        cache.Stats
	Conversations       cache.Stats
	Snapshot            cache.Stats
	ActiveConversations int
	TotalTurns          int
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	classifierConfig *classify.Config
	keywordWeight    float64
	resultTTL        time.Duration
	conversationTTL  time.Duration
	maxTurns         int
	fetchLimit       int
	poolSize         int
	clock            cache.Clock
	logger           *slog.Logger
}

// WithClassifierConfig replaces the default category vocabulary.
func WithClassifierConfig(config *classify.Config) Option {
	return func(o *engineOptions) {
		o.classifierConfig = config
	}
}

// WithKeywordWeight sets the keyword share of the combined score.
func WithKeywordWeight(weight float64) Option {
	return func(o *engineOptions) {
		o.keywordWeight = weight
	}
}

// WithResultTTL sets the query-result cache TTL.
func WithResultTTL(ttl time.Duration) Option {
	return func(o *engineOptions) {
		if ttl > 0 {
			o.resultTTL = ttl
		}
	}
}

// WithConversationTTL sets the conversation memory idle expiry.
func WithConversationTTL(ttl time.Duration) Option {
	return func(o *engineOptions) {
		if ttl > 0 {
			o.conversationTTL = ttl
		}
	}
}

// WithMaxTurns sets the per-conversation turn cap.
func WithMaxTurns(maxTurns int) Option {
	return func(o *engineOptions) {
		if maxTurns > 0 {
			o.maxTurns = maxTurns
		}
	}
}

// WithFetchLimit caps candidates fetched per query.
func WithFetchLimit(limit int) Option {
	return func(o *engineOptions) {
		if limit > 0 {
			o.fetchLimit = limit
		}
	}
}

// WithPoolSize sets the scoring worker pool size.
func WithPoolSize(size int) Option {
	return func(o *engineOptions) {
		if size > 0 {
			o.poolSize = size
		}
	}
}

// WithClock substitutes the time source for the caches, mainly for tests.
func WithClock(clock cache.Clock) Option {
	return func(o *engineOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Engine over the given entity repository and embedder.
func New(repo storage.EntityRepository, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	o := &engineOptions{
		keywordWeight:   rank.DefaultKeywordWeight,
		resultTTL:       DefaultResultTTL,
		conversationTTL: memory.DefaultTTL,
		maxTurns:        memory.DefaultMaxTurns,
		fetchLimit:      DefaultFetchLimit,
		poolSize:        DefaultPoolSize,
		clock:           time.Now,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger.With("component", "engine")

	classifier, err := classify.New(o.classifierConfig, classify.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	ranker, err := rank.NewRanker(
		rank.WithKeywordWeight(o.keywordWeight),
		rank.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	conversations, err := memory.NewStore(
		memory.WithTTL(o.conversationTTL),
		memory.WithMaxTurns(o.maxTurns),
		memory.WithClock(o.clock),
		memory.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	results, err := cache.New[core.ID, []core.RankedResult](
		cache.Uint64Hasher[core.ID], o.resultTTL, cache.WithClock(o.clock))
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(o.poolSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		repo:       repo,
		embedder:   embedder,
		classifier: classifier,
		ranker:     ranker,
		memory:     conversations,
		results:    results,
		pool:       pool,
		fetchLimit: o.fetchLimit,
		logger:     logger,
	}, nil
}

// Classify determines the category filter and primary-only flag for a query.
func (e *Engine) Classify(query string) classify.Intent {
	return e.classifier.Classify(query)
}

// Resolve is the end-to-end cached pipeline entry point. It returns entities
// ordered by combined score, at most limit of them (limit <= 0 means all).
// A non-empty categoryOverride replaces the classifier's detected category.
//
// Store and embedder failures come back wrapped in ErrUpstreamFetch. An
// empty candidate set is not an error; it yields an empty slice.
func (e *Engine) Resolve(ctx context.Context, query string, limit int, categoryOverride string) ([]core.RankedResult, error) {
	intent := e.classifier.Classify(query)
	if categoryOverride != "" {
		intent.Category = categoryOverride
	}

	key := queryKey{
		Query:       query,
		Category:    intent.Category,
		Limit:       limit,
		PrimaryOnly: intent.PrimaryOnly,
	}.id()

	if cached, hit := e.results.Get(key); hit {
		e.logger.Debug("query cache hit", "query", query)
		return cloneResults(cached), nil
	}

	candidates, err := e.fetchCandidates(ctx, query, intent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}

	if intent.PrimaryOnly {
		candidates = filterPrimary(candidates)
	}

	if len(candidates) == 0 {
		empty := []core.RankedResult{}
		e.results.Put(key, empty)
		return empty, nil
	}

	queryVector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}

	scored := e.scoreCandidates(query, intent.Category, queryVector, candidates)

	ranked := e.ranker.Rank(query, scored)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	e.results.Put(key, ranked)
	e.logger.Debug("resolved query",
		"query", query, "category", intent.Category,
		"candidates", len(candidates), "results", len(ranked))

	return cloneResults(ranked), nil
}

// fetchCandidates pulls candidates from the entity store, by category index
// when the classifier found one, by keyword containment otherwise.
func (e *Engine) fetchCandidates(ctx context.Context, query string, intent classify.Intent) ([]*core.Entity, error) {
	if intent.Category != "" {
		return e.repo.FetchByCategory(ctx, intent.Category, e.fetchLimit)
	}
	return e.repo.FetchByKeyword(ctx, query, e.fetchLimit)
}

// scoreCandidates computes keyword and semantic scores over the worker pool.
// Each worker writes to its own slot, so no locking is needed; inline
// scoring is the fallback when the pool rejects a task.
func (e *Engine) scoreCandidates(query, category string, queryVector []float32, candidates []*core.Entity) []core.ScoredCandidate {
	keywords := e.classifier.Config().Keywords(category)

	scored := make([]core.ScoredCandidate, len(candidates))
	var wg sync.WaitGroup
	for i := range candidates {
		i := i
		entity := candidates[i]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			scored[i] = core.ScoredCandidate{
				Entity:   entity,
				Keyword:  rank.Keyword(query, keywords, entity),
				Semantic: rank.Semantic(queryVector, entity.Vector),
			}
		}
		if err := e.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	return scored
}

// Remember appends a turn to the user's conversation.
func (e *Engine) Remember(userID string, speaker core.SpeakerType, contents string) error {
	return e.memory.Append(userID, speaker, contents)
}

// Recall returns up to maxTurns of the user's most recent turns, oldest
// first. Absent or expired conversations yield an empty slice.
func (e *Engine) Recall(userID string, maxTurns int) []core.Turn {
	return e.memory.History(userID, maxTurns)
}

// Forget deletes the user's conversation immediately.
func (e *Engine) Forget(userID string) {
	e.memory.Clear(userID)
}

// CacheStats reports per-cache hit/miss counters and conversation counts.
func (e *Engine) CacheStats() Stats {
	stats := Stats{
		QueryResults:  e.results.Stats(),
		Conversations: e.memory.CacheStats(),
	}

	mem := e.memory.Stats()
	stats.ActiveConversations = mem.ActiveConversations
	stats.TotalTurns = mem.TotalTurns

	if snap, ok := e.repo.(interface{ CacheStats() cache.Stats }); ok {
		stats.Snapshot = snap.CacheStats()
	}
	return stats
}

// Sweep physically removes expired cache entries and conversations,
// returning the total evicted.
func (e *Engine) Sweep() int {
	return e.results.Sweep() + e.memory.Sweep()
}

// Close releases the scoring pool. The repository is owned by the caller
// and stays open.
func (e *Engine) Close() error {
	e.pool.Release()
	return nil
}

func filterPrimary(candidates []*core.Entity) []*core.Entity {
	filtered := make([]*core.Entity, 0, len(candidates))
	for _, entity := range candidates {
		if entity.Attraction == core.AttractionTypePrimary {
			filtered = append(filtered, entity)
		}
	}
	return filtered
}

func cloneResults(results []core.RankedResult) []core.RankedResult {
	out := make([]core.RankedResult, len(results))
	copy(out, results)
	return out
}
