package match

import (
	"context"
	"strings"

	"shelfmatch/internal/core/normalize"
)

// Fuzzy scores normalized edit distance between the token-joined query text
// and each alias. An exact substring scores at least shorter/longer
type Fuzzy struct{}

// NewFuzzy builds the strategy
func NewFuzzy() *Fuzzy { return &Fuzzy{} }

// Name implements Strategy
func (f *Fuzzy) Name() string { return StrategyFuzzy }

// Run implements Strategy
func (f *Fuzzy) Run(_ context.Context, q normalize.Query, pool []AliasRef, threshold float64, topK int) Outcome {
	if q.Text == "" || len(pool) == 0 {
		return Outcome{}
	}

	best := make(bestByProduct, len(pool))
	for _, ref := range pool {
		best.consider(Candidate{
			ProductID:  ref.ProductID,
			Confidence: Ratio(q.Text, strings.Join(ref.Tokens, " ")),
			Alias:      ref.Alias,
			Strategy:   StrategyFuzzy,
		})
	}
	return best.outcome(threshold, topK, len(pool))
}

// Ratio is the fuzzy similarity of two normalized strings in [0,1]:
// 1 - dist/maxLen over runes, floored at shorter/longer when one string
// contains the other
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	score := 1 - float64(levenshtein(ra, rb))/float64(maxLen)

	shorter, longer := a, b
	sl, ll := len(ra), len(rb)
	if sl > ll {
		shorter, longer = b, a
		sl, ll = ll, sl
	}
	if strings.Contains(longer, shorter) {
		if floor := float64(sl) / float64(ll); floor > score {
			score = floor
		}
	}
	return clamp01(score)
}

// levenshtein is the two-row edit distance over rune slices
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range a {
		cur[0] = i + 1
		for j, cb := range b {
			cost := 0
			if ca != cb {
				cost = 1
			}
			d := prev[j] + cost
			if del := prev[j+1] + 1; del < d {
				d = del
			}
			if ins := cur[j] + 1; ins < d {
				d = ins
			}
			cur[j+1] = d
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
