package match

import (
	"context"
	"math"
	"sort"

	"shelfmatch/internal/core/normalize"

	"github.com/rs/zerolog"
)

// Semantic scores token-level embedding similarity. Each direction takes the
// mean of every token's best single-token cosine against the other side; the
// two directions are averaged and clipped to [0,1]. A token with no vector
// and no exact counterpart carries no signal and is excluded from its mean
type Semantic struct {
	src EmbedSource
	log zerolog.Logger
}

// NewSemantic builds the strategy over an embedding source
func NewSemantic(src EmbedSource, log zerolog.Logger) *Semantic {
	return &Semantic{src: src, log: log}
}

// Name implements Strategy
func (s *Semantic) Name() string { return StrategySemantic }

// Run implements Strategy. The token universe is embedded in one source call
// and pair scores are memoized for the duration of this run. A source failure
// degrades to a zero outcome so the pipeline falls through to the next
// strategy instead of erroring the request
func (s *Semantic) Run(ctx context.Context, q normalize.Query, pool []AliasRef, threshold float64, topK int) Outcome {
	if len(q.Tokens) == 0 || len(pool) == 0 {
		return Outcome{}
	}

	vecs, err := s.src.Embed(ctx, uniqueTokens(q, pool))
	if err != nil {
		s.log.Warn().Err(err).Str("source", s.src.Name()).Msg("embedding lookup failed, semantic pass skipped")
		return Outcome{}
	}

	memo := make(map[pairKey]float64, 64)
	best := make(bestByProduct, len(pool))
	for _, ref := range pool {
		best.consider(Candidate{
			ProductID:  ref.ProductID,
			Confidence: semanticScore(q.Tokens, ref.Tokens, vecs, memo),
			Alias:      ref.Alias,
			Strategy:   StrategySemantic,
		})
	}
	return best.outcome(threshold, topK, len(pool))
}

type pairKey [2]string

// pairScore is 1 for identical tokens, the clipped cosine when both sides
// embed, 0 when either side has no vector
func pairScore(a, b string, vecs map[string]Vector, memo map[pairKey]float64) float64 {
	if a == b {
		return 1
	}
	k := pairKey{a, b}
	if a > b {
		k = pairKey{b, a}
	}
	if s, ok := memo[k]; ok {
		return s
	}
	var s float64
	va, okA := vecs[a]
	vb, okB := vecs[b]
	if okA && okB {
		s = clamp01(Cosine(va, vb))
	}
	memo[k] = s
	return s
}

// direction is the mean best pair score of src tokens against dst. Tokens
// that neither embed nor appear verbatim in dst are skipped; when nothing is
// left the direction scores 0
func direction(src, dst []string, vecs map[string]Vector, memo map[pairKey]float64) float64 {
	dstset := make(map[string]struct{}, len(dst))
	for _, t := range dst {
		dstset[t] = struct{}{}
	}

	var total float64
	var covered int
	for _, t := range src {
		if _, embeddable := vecs[t]; !embeddable {
			if _, exact := dstset[t]; !exact {
				continue
			}
		}
		var best float64
		for _, u := range dst {
			if s := pairScore(t, u, vecs, memo); s > best {
				best = s
			}
		}
		total += best
		covered++
	}
	if covered == 0 {
		return 0
	}
	return total / float64(covered)
}

func semanticScore(q, a []string, vecs map[string]Vector, memo map[pairKey]float64) float64 {
	if len(q) == 0 || len(a) == 0 {
		return 0
	}
	return clamp01((direction(q, a, vecs, memo) + direction(a, q, vecs, memo)) / 2)
}

// uniqueTokens gathers the deduplicated token universe of one request, sorted
// so source calls are reproducible
func uniqueTokens(q normalize.Query, pool []AliasRef) []string {
	seen := make(map[string]struct{}, len(q.Tokens)*4)
	for _, t := range q.Tokens {
		seen[t] = struct{}{}
	}
	for _, ref := range pool {
		for _, t := range ref.Tokens {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Cosine is the angle similarity of two equal-dimension vectors in [-1,1].
// Mismatched or zero-norm input scores 0
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
