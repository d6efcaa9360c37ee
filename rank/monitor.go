package rank

import "github.com/poiesic/wayfarer/core"

// Monitor provides hooks to observe the ranking process.
// Implement this interface to audit how scores combined and which
// candidates were force-promoted.
type Monitor interface {
	Start(query string)
	Scored(candidate *core.ScoredCandidate)
	ExactMatchOverride(entity *core.Entity)
	Finish(results []core.RankedResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                         {}
func (n *noopMonitor) Scored(_ *core.ScoredCandidate)         {}
func (n *noopMonitor) ExactMatchOverride(_ *core.Entity)      {}
func (n *noopMonitor) Finish(_ []core.RankedResult)           {}
