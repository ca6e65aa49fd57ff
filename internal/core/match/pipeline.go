package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shelfmatch/internal/core/normalize"

	"github.com/rs/zerolog"
)

// Pipeline runs strategies in a fixed order with early termination: the
// first strategy whose pass list is non-empty wins outright and later
// strategies never run, even when they would have scored higher. A weaker
// match from an earlier strategy can therefore hide a stronger match from a
// later one; the order is the contract
type Pipeline struct {
	strategies []Strategy
	topK       int
}

// NewPipeline builds a pipeline over an ordered strategy chain. topK caps
// both per-strategy best-seen lists and the final candidate list
func NewPipeline(strategies []Strategy, topK int) *Pipeline {
	return &Pipeline{strategies: strategies, topK: topK}
}

// Strategies lists the configured chain order by name
func (p *Pipeline) Strategies() []string {
	out := make([]string, 0, len(p.strategies))
	for _, st := range p.strategies {
		out = append(out, st.Name())
	}
	return out
}

// Run executes the chain over the pool. On exhaustion the result carries the
// union of every strategy's best-seen, deduplicated by product with the
// highest score winning
func (p *Pipeline) Run(ctx context.Context, q normalize.Query, pool []AliasRef, threshold float64) Result {
	var res Result
	var seen []Candidate

	for _, st := range p.strategies {
		start := time.Now()
		out := st.Run(ctx, q, pool, threshold, p.topK)
		res.Trace = append(res.Trace, traceEntry(st.Name(), start, out))

		if len(out.Passed) > 0 {
			res.Success = true
			res.Strategy = st.Name()
			res.Candidates = Aggregate(out.Passed, p.topK)
			return res
		}
		seen = append(seen, out.BestSeen...)
	}

	res.Candidates = Aggregate(seen, p.topK)
	return res
}

func traceEntry(name string, start time.Time, out Outcome) TraceEntry {
	top := out.BestSeen
	if len(top) > 3 {
		top = top[:3]
	}
	scores := make([]TraceScore, 0, len(top))
	for _, c := range top {
		scores = append(scores, TraceScore{ProductID: c.ProductID, Alias: c.Alias, Score: c.Confidence})
	}
	return TraceEntry{
		Strategy:          name,
		Timestamp:         start.UTC(),
		ElapsedMs:         float64(time.Since(start).Microseconds()) / 1000.0,
		CandidatesChecked: out.Checked,
		TopScores:         scores,
	}
}

// ForNames builds the strategy chain for an ordered list of names so a bad
// strategy list dies at boot, not at request time
func ForNames(names []string, src EmbedSource, log zerolog.Logger) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case StrategySemantic:
			out = append(out, NewSemantic(src, log))
		case StrategyFuzzy:
			out = append(out, NewFuzzy())
		case StrategyJaccard:
			out = append(out, NewJaccard())
		case "":
		default:
			return nil, fmt.Errorf("match: unknown strategy %q", name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("match: no strategies configured")
	}
	return out, nil
}
