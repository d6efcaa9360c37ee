package rank

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/wayfarer/core"
)

// DefaultKeywordWeight is the share of the combined score carried by the
// keyword match; the remainder goes to semantic similarity.
const DefaultKeywordWeight = 0.3

// Ranker merges per-candidate keyword and semantic scores and orders the
// results deterministically. It is purely functional: no state machine, no
// shared mutable state, safe for unbounded concurrent use.
type Ranker struct {
	weight float64
	logger *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithKeywordWeight sets the keyword share of the combined score.
// Must be in [0,1]. Default is DefaultKeywordWeight.
func WithKeywordWeight(weight float64) Option {
	return func(r *Ranker) error {
		if weight < 0 || weight > 1 {
			return ErrInvalidWeight
		}
		r.weight = weight
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRanker creates a ranker with the default keyword weight.
func NewRanker(opts ...Option) (*Ranker, error) {
	r := &Ranker{
		weight: DefaultKeywordWeight,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// KeywordWeight returns the configured keyword weight.
func (r *Ranker) KeywordWeight() float64 {
	return r.weight
}

// Rank computes combined scores and sorts candidates descending.
//
// Tie-breaking, in order:
//  1. Candidates whose name exactly or substring-matches the raw query text
//     are forced to the top regardless of combined score. Users naming a
//     specific place expect it first even with marginally lower embedding
//     similarity.
//  2. Remaining ties keep stable first-seen order.
//
// An empty candidate set yields an empty (non-nil) result, not an error.
func (r *Ranker) Rank(query string, candidates []core.ScoredCandidate) []core.RankedResult {
	return r.RankWithMonitor(query, candidates, nil)
}

// RankWithMonitor ranks candidates with observation hooks.
// The monitor receives callbacks as scores combine and overrides apply.
func (r *Ranker) RankWithMonitor(query string, candidates []core.ScoredCandidate, monitor Monitor) []core.RankedResult {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	overrides := make([]core.RankedResult, 0)
	scored := make([]core.RankedResult, 0, len(candidates))

	for i := range candidates {
		candidate := &candidates[i]
		candidate.Combined = core.CombineScores(candidate.Semantic, candidate.Keyword, r.weight)
		monitor.Scored(candidate)

		result := core.RankedResult{Entity: candidate.Entity, Score: candidate.Combined}
		if candidate.Entity != nil && nameMatchesQuery(query, candidate.Entity.Name) {
			monitor.ExactMatchOverride(candidate.Entity)
			overrides = append(overrides, result)
			continue
		}
		scored = append(scored, result)
	}

	// Stable sort preserves first-seen order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	results := append(overrides, scored...)
	monitor.Finish(results)
	return results
}

// nameMatchesQuery reports whether the entity name and the raw query text
// contain each other, case-insensitively, in either direction.
//
// Note: bidirectional containment can misfire for very short names or
// queries (a one-letter name matches almost anything). Behavior is kept
// as-is; see the short-string cases in ranker_test.go.
func nameMatchesQuery(query, name string) bool {
	if query == "" || name == "" {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	n := strings.ToLower(strings.TrimSpace(name))
	if q == "" || n == "" {
		return false
	}
	return strings.Contains(n, q) || strings.Contains(q, n)
}
