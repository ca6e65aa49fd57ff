package match

import (
	"context"

	"shelfmatch/internal/core/normalize"
)

// Jaccard scores token-set overlap. It is a high-precision guard: it passes
// only when exactly one product clears the threshold, any other count
// reports no pass so the pipeline falls through while the best-seen list
// still feeds diagnostics
type Jaccard struct{}

// NewJaccard builds the strategy
func NewJaccard() *Jaccard { return &Jaccard{} }

// Name implements Strategy
func (j *Jaccard) Name() string { return StrategyJaccard }

// Run implements Strategy
func (j *Jaccard) Run(_ context.Context, q normalize.Query, pool []AliasRef, threshold float64, topK int) Outcome {
	if len(q.Tokens) == 0 || len(pool) == 0 {
		return Outcome{}
	}

	best := make(bestByProduct, len(pool))
	for _, ref := range pool {
		best.consider(Candidate{
			ProductID:  ref.ProductID,
			Confidence: Overlap(q.Tokens, ref.Tokens),
			Alias:      ref.Alias,
			Strategy:   StrategyJaccard,
		})
	}

	out := best.outcome(threshold, topK, len(pool))
	if len(out.Passed) != 1 {
		out.Passed = nil
	}
	return out
}

// Overlap is |A∩B| / |A∪B| over token sets
func Overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sa := make(map[string]struct{}, len(a))
	for _, t := range a {
		sa[t] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, t := range b {
		sb[t] = struct{}{}
	}

	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}
