// Package normalize turns raw receipt text into the canonical form the
// matching strategies compare against
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFD decomposition
// 3 Case folding
// 4 Remove combining marks and format chars
// 5 Width fold fullwidth to ASCII
// 6 Punctuation to spaces keep letters digits underscore
// 7 Whitespace collapse and tokenization
// 8 Language rules abbreviation expansion lemma fold stopword removal
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"shelfmatch/internal/core/langpack"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Query is the normalized form of one piece of match input. Text is the
// space-joined Tokens and is what fuzzy matching and pending records store
type Query struct {
	RawText  string
	Language string
	Text     string
	Tokens   []string
}

// Normalizer applies the fold chain plus per-language langpack rules.
// Safe for concurrent use
type Normalizer struct {
	pack *langpack.Pack
}

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFD,                           // decompose so marks are strippable
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			width.Fold,                         // map fullwidth forms to ASCII
		)
	},
}

// New constructs a Normalizer over the given language pack
func New(pack *langpack.Pack) *Normalizer { return &Normalizer{pack: pack} }

// Normalize is pure, deterministic and total. Languages without a pack fall
// back to the baseline fold silently; so does rule application that would
// leave no tokens at all. Re-normalizing an output is a fixed point
func (n *Normalizer) Normalize(raw, lang string) Query {
	q := Query{RawText: raw, Language: strings.ToLower(strings.TrimSpace(lang))}

	tokens := n.baseline(raw)
	if r, ok := n.pack.Rules(lang); ok {
		q.Language = r.Lang
		if ruled := applyRules(tokens, r); len(ruled) > 0 {
			tokens = ruled
		}
	}

	q.Tokens = tokens
	q.Text = strings.Join(tokens, " ")
	return q
}

// baseline runs stages 1-7: repair, pooled fold chain, punctuation strip,
// tokenize
func (n *Normalizer) baseline(s string) []string {
	if s == "" {
		return nil
	}

	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	fs, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return strings.Fields(punctToSpace(fs))
}

// applyRules expands abbreviations, folds lemmas and drops stopwords, in that
// order. Expansion outputs go through the lemma and stopword stages too
func applyRules(tokens []string, r *langpack.Rules) []string {
	out := make([]string, 0, len(tokens))
	emit := func(tok string) {
		if lem, ok := r.Lemmas[tok]; ok {
			tok = lem
		}
		if _, stop := r.Stopset[tok]; stop {
			return
		}
		out = append(out, tok)
	}
	for _, tok := range tokens {
		if parts, ok := r.Expansions[tok]; ok {
			for _, p := range parts {
				emit(p)
			}
			continue
		}
		emit(tok)
	}
	return out
}

// punctToSpace keeps letters digits and underscore, converts everything else
// to a space so Fields can split on it
func punctToSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
