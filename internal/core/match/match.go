// Package match implements the similarity strategies and the ordered
// pipeline that maps a normalized query onto external product aliases
package match

import (
	"context"
	"sort"
	"time"

	"shelfmatch/internal/core/normalize"
)

// Strategy names accepted by ForNames and reported in results and traces
const (
	StrategySemantic = "semantic"
	StrategyFuzzy    = "fuzzy"
	StrategyJaccard  = "jaccard"
)

// Vector is one token embedding
type Vector []float32

// EmbedSource supplies token vectors for the semantic strategy. The returned
// map contains only the tokens the source knows; absent tokens carry no
// semantic signal. Implementations live in internal/adapters/embed
type EmbedSource interface {
	Name() string
	Embed(ctx context.Context, tokens []string) (map[string]Vector, error)
}

// AliasRef is one (product, alias) pool entry with pre-normalized tokens.
// The pool is prepared once per request by the caller
type AliasRef struct {
	ProductID string
	Alias     string
	Tokens    []string
}

// Candidate is a scored product alias
type Candidate struct {
	ProductID  string  `json:"product_id"`
	Confidence float64 `json:"confidence"`
	Alias      string  `json:"matched_alias"`
	Strategy   string  `json:"strategy_name"`
}

// Outcome is one strategy's verdict over the pool. Passed holds only
// candidates at or above the threshold, BestSeen the topK regardless of
// threshold, both deduplicated by product and sorted. Checked counts the
// pool entries actually scored
type Outcome struct {
	Passed   []Candidate
	BestSeen []Candidate
	Checked  int
}

// Strategy scores a normalized query against the candidate pool.
// Implementations are stateless across calls; anything cached (such as the
// semantic token-pair scores) lives and dies inside one Run
type Strategy interface {
	Name() string
	Run(ctx context.Context, q normalize.Query, pool []AliasRef, threshold float64, topK int) Outcome
}

// TraceScore is one scored alias inside a trace entry
type TraceScore struct {
	ProductID string  `json:"product_id"`
	Alias     string  `json:"alias"`
	Score     float64 `json:"score"`
}

// TraceEntry records one pipeline step for debug output
type TraceEntry struct {
	Strategy          string       `json:"strategy"`
	Timestamp         time.Time    `json:"timestamp"`
	ElapsedMs         float64      `json:"elapsed_ms"`
	CandidatesChecked int          `json:"candidates_checked"`
	TopScores         []TraceScore `json:"top_scores"`
}

// Result is the pipeline verdict. Strategy names the step that passed and is
// empty on exhaustion; Candidates are already aggregated and capped
type Result struct {
	Success    bool
	Strategy   string
	Candidates []Candidate
	Trace      []TraceEntry
}

// Aggregate deduplicates by product id keeping the highest confidence, sorts
// by the shared ranking order and truncates to max (0 means no cap)
func Aggregate(cands []Candidate, max int) []Candidate {
	best := make(bestByProduct, len(cands))
	for _, c := range cands {
		best.consider(c)
	}
	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return candidateLess(out[i], out[j]) })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// candidateLess is the shared ranking order: confidence descending, then
// shorter alias, then alias text, then product id
func candidateLess(a, b Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if len(a.Alias) != len(b.Alias) {
		return len(a.Alias) < len(b.Alias)
	}
	if a.Alias != b.Alias {
		return a.Alias < b.Alias
	}
	return a.ProductID < b.ProductID
}

// bestByProduct keeps the winning candidate per product id
type bestByProduct map[string]Candidate

func (m bestByProduct) consider(c Candidate) {
	if cur, ok := m[c.ProductID]; ok && !candidateLess(c, cur) {
		return
	}
	m[c.ProductID] = c
}

// outcome ranks the per-product winners and splits them into Passed and
// BestSeen
func (m bestByProduct) outcome(threshold float64, topK, checked int) Outcome {
	ranked := make([]Candidate, 0, len(m))
	for _, c := range m {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool { return candidateLess(ranked[i], ranked[j]) })

	out := Outcome{Checked: checked}
	for _, c := range ranked {
		if c.Confidence >= threshold {
			out.Passed = append(out.Passed, c)
		}
	}
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out.BestSeen = ranked
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
