package embed

import (
	"context"
	_ "embed"
	"encoding/json"

	match "shelfmatch/internal/core/match"
	perr "shelfmatch/internal/platform/errors"
)

//go:embed vectors.json
var lexiconJSON []byte

type lexiconFile struct {
	Version int                  `json:"version"`
	Dims    int                  `json:"dims"`
	Vectors map[string][]float32 `json:"vectors"`
}

// Lexicon is the embedded static vocabulary. It is deterministic, needs no
// network and is the default source for tests and standalone deployments
type Lexicon struct {
	dims int
	vecs map[string]match.Vector
}

// NewLexicon parses and validates the embedded vectors.json
func NewLexicon() (*Lexicon, error) {
	var lf lexiconFile
	if err := json.Unmarshal(lexiconJSON, &lf); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "embed: parse vectors.json")
	}
	if lf.Version != 1 {
		return nil, perr.Newf(perr.ErrorCodeUnknown, "embed: unsupported vectors.json version %d (want 1)", lf.Version)
	}
	if lf.Dims <= 0 {
		return nil, perr.Newf(perr.ErrorCodeUnknown, "embed: vectors.json dims %d", lf.Dims)
	}

	l := &Lexicon{dims: lf.Dims, vecs: make(map[string]match.Vector, len(lf.Vectors))}
	for tok, v := range lf.Vectors {
		if len(v) != lf.Dims {
			return nil, perr.Newf(perr.ErrorCodeUnknown, "embed: token %q has %d dims, want %d", tok, len(v), lf.Dims)
		}
		l.vecs[tok] = match.Vector(v)
	}
	return l, nil
}

// Name implements Source
func (l *Lexicon) Name() string { return "lexicon" }

// Dims is the vector dimensionality
func (l *Lexicon) Dims() int { return l.dims }

// Size is the vocabulary size
func (l *Lexicon) Size() int { return len(l.vecs) }

// Embed implements Source. It never fails; unknown tokens are left out
func (l *Lexicon) Embed(_ context.Context, tokens []string) (map[string]match.Vector, error) {
	out := make(map[string]match.Vector, len(tokens))
	for _, t := range tokens {
		if v, ok := l.vecs[t]; ok {
			out[t] = v
		}
	}
	return out, nil
}
