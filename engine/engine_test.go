package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/ai/mock"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo is a slice-backed EntityRepository with failure injection.
type stubRepo struct {
	mu         sync.Mutex
	entities   []*core.Entity
	fetchErr   error
	fetchCalls int
}

var _ storage.EntityRepository = (*stubRepo)(nil)

func (s *stubRepo) FetchByCategory(ctx context.Context, category string, limit int) ([]*core.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []*core.Entity
	for _, e := range s.entities {
		if e.Category == category {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) FetchByKeyword(ctx context.Context, text string, limit int) ([]*core.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	needle := strings.ToLower(text)
	var out []*core.Entity
	for _, e := range s.entities {
		if strings.Contains(strings.ToLower(e.Name), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle) {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) All(ctx context.Context) ([]*core.Entity, error) { return s.entities, nil }

func (s *stubRepo) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	s.entities = append(s.entities, entities...)
	return entities, nil
}

func (s *stubRepo) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	return entities, nil
}

func (s *stubRepo) DeleteEntities(ctx context.Context, ids ...core.ID) error { return nil }

func (s *stubRepo) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	return nil, storage.ErrNotFound
}

func (s *stubRepo) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	return nil, nil
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func (s *stubRepo) setFetchErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

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

func bangkokEntities() []*core.Entity {
	return []*core.Entity{
		{Id: 1, Name: "Wat Pho", Category: "temple", Attraction: core.AttractionTypePrimary,
			Description: "Temple of the Reclining Buddha"},
		{Id: 2, Name: "Wat Arun", Category: "temple", Attraction: core.AttractionTypePrimary,
			Description: "Temple of Dawn on the river"},
		{Id: 3, Name: "Wat Saket", Category: "temple", Attraction: core.AttractionTypeSecondary,
			Description: "Golden Mount temple with city views"},
		{Id: 4, Name: "Chatuchak Market", Category: "market", Attraction: core.AttractionTypeSecondary,
			Description: "Sprawling weekend market"},
		{Id: 5, Name: "Grand Palace", Category: "palace", Attraction: core.AttractionTypePrimary,
			Description: "Former royal residence"},
	}
}

func newTestEngine(t *testing.T, repo *stubRepo, opts ...Option) (*Engine, *mock.MockEmbedder) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	eng, err := New(repo, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	// Entities need vectors for the semantic scorer; derive them the same
	// way the mock derives query vectors.
	ctx := context.Background()
	for _, e := range repo.entities {
		if len(e.Vector) == 0 {
			vec, err := embedder.EmbedText(ctx, e.Description)
			require.NoError(t, err)
			e.Vector = vec
		}
	}
	embedder.Reset()
	return eng, embedder
}

func TestNew_RequiredDependencies(t *testing.T) {
	embedder := mock.NewMockEmbedder()

	_, err := New(nil, embedder)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = New(&stubRepo{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestResolve_Determinism(t *testing.T) {
	ctx := context.Background()

	run := func() []core.RankedResult {
		repo := &stubRepo{entities: bangkokEntities()}
		eng, _ := newTestEngine(t, repo)
		results, err := eng.Resolve(ctx, "temples in bangkok", 10, "")
		require.NoError(t, err)
		return results
	}

	first := run()
	second := run()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Entity.Id, second[i].Entity.Id)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestResolve_CacheHit(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, embedder := newTestEngine(t, repo)
	ctx := context.Background()

	first, err := eng.Resolve(ctx, "temples in bangkok", 10, "")
	require.NoError(t, err)
	fetches, embeds := repo.callCount(), embedder.CallCount()

	second, err := eng.Resolve(ctx, "temples in bangkok", 10, "")
	require.NoError(t, err)

	assert.Equal(t, fetches, repo.callCount(), "cache hit must not fetch")
	assert.Equal(t, embeds, embedder.CallCount(), "cache hit must not embed")
	assert.Equal(t, first, second)

	t.Run("different limit is a different key", func(t *testing.T) {
		_, err := eng.Resolve(ctx, "temples in bangkok", 2, "")
		require.NoError(t, err)
		assert.Greater(t, repo.callCount(), fetches)
	})
}

func TestResolve_CacheExpiry(t *testing.T) {
	clock := newFakeClock()
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo,
		WithClock(clock.Now), WithResultTTL(300*time.Second))
	ctx := context.Background()

	_, err := eng.Resolve(ctx, "temples", 10, "")
	require.NoError(t, err)
	fetches := repo.callCount()

	clock.Advance(299 * time.Second)
	_, err = eng.Resolve(ctx, "temples", 10, "")
	require.NoError(t, err)
	assert.Equal(t, fetches, repo.callCount())

	clock.Advance(2 * time.Second)
	_, err = eng.Resolve(ctx, "temples", 10, "")
	require.NoError(t, err)
	assert.Greater(t, repo.callCount(), fetches)
}

func TestResolve_EmptyCandidates(t *testing.T) {
	repo := &stubRepo{}
	eng, embedder := newTestEngine(t, repo)

	results, err := eng.Resolve(context.Background(), "temples", 10, "")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, embedder.CallCount(), "no candidates means nothing to embed")
}

func TestResolve_PrimaryOnly(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo)

	results, err := eng.Resolve(context.Background(), "must see temples", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, core.AttractionTypePrimary, r.Entity.Attraction)
	}
}

func TestResolve_CategoryOverride(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo)

	// The query classifies as "temple"; the override wins.
	results, err := eng.Resolve(context.Background(), "temples", 10, "market")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Chatuchak Market", results[0].Entity.Name)
}

func TestResolve_Limit(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo)

	results, err := eng.Resolve(context.Background(), "temples", 2, "")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestResolve_UpstreamFetchFailure(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		repo := &stubRepo{entities: bangkokEntities()}
		eng, _ := newTestEngine(t, repo)
		repo.setFetchErr(errors.New("store unavailable"))

		_, err := eng.Resolve(context.Background(), "temples", 10, "")
		assert.ErrorIs(t, err, ErrUpstreamFetch)
	})

	t.Run("embedder failure", func(t *testing.T) {
		repo := &stubRepo{entities: bangkokEntities()}
		eng, embedder := newTestEngine(t, repo)
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("provider down")
		}

		_, err := eng.Resolve(context.Background(), "temples", 10, "")
		assert.ErrorIs(t, err, ErrUpstreamFetch)
	})
}

func TestResolve_MalformedVectorsDegrade(t *testing.T) {
	entities := bangkokEntities()
	for _, e := range entities {
		e.Vector = []float32{0.1} // wrong dimension for every candidate
	}
	repo := &stubRepo{entities: entities}
	eng, _ := newTestEngine(t, repo)

	// Semantic scores all degrade to 0; keyword-only ranking still works.
	results, err := eng.Resolve(context.Background(), "temples", 10, "")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRememberRecallForget(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo)

	require.NoError(t, eng.Remember("u1", core.SpeakerTypeHuman, "any temples nearby?"))
	require.NoError(t, eng.Remember("u1", core.SpeakerTypeAI, "try Wat Pho"))

	turns := eng.Recall("u1", 10)
	require.Len(t, turns, 2)
	assert.Equal(t, "any temples nearby?", turns[0].Contents)

	eng.Forget("u1")
	assert.Empty(t, eng.Recall("u1", 10))

	t.Run("invalid turn rejected", func(t *testing.T) {
		err := eng.Remember("u1", core.SpeakerType(9), "hi")
		assert.ErrorIs(t, err, core.ErrInvalidSpeakerType)
	})
}

func TestCacheStats(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo)
	ctx := context.Background()

	_, err := eng.Resolve(ctx, "temples", 10, "")
	require.NoError(t, err)
	_, err = eng.Resolve(ctx, "temples", 10, "")
	require.NoError(t, err)

	require.NoError(t, eng.Remember("u1", core.SpeakerTypeHuman, "hello"))

	stats := eng.CacheStats()
	assert.Equal(t, int64(1), stats.QueryResults.Hits)
	assert.Equal(t, int64(1), stats.QueryResults.Misses)
	assert.Equal(t, 1, stats.ActiveConversations)
	assert.Equal(t, 1, stats.TotalTurns)
}

func TestClassify(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo)

	intent := eng.Classify("must see temples in bangkok")
	assert.Equal(t, "temple", intent.Category)
	assert.True(t, intent.PrimaryOnly)

	intent = eng.Classify("tell me something")
	assert.Empty(t, intent.Category)
	assert.False(t, intent.PrimaryOnly)
}

func TestResolve_Concurrent(t *testing.T) {
	repo := &stubRepo{entities: bangkokEntities()}
	eng, _ := newTestEngine(t, repo)
	ctx := context.Background()

	baseline, err := eng.Resolve(ctx, "temples", 10, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := eng.Resolve(ctx, "temples", 10, "")
			assert.NoError(t, err)
			assert.Equal(t, baseline, got)
		}()
	}
	wg.Wait()
}
