// Package embed provides the token embedding sources behind the semantic
// matching strategy: a deterministic lexicon compiled into the binary and a
// client for an external embedding service
package embed

import (
	"strings"
	"time"

	match "shelfmatch/internal/core/match"
	perr "shelfmatch/internal/platform/errors"
)

// Source supplies token vectors. Tokens the source does not know are simply
// absent from the returned map, never an error
type Source = match.EmbedSource

// Vector mirrors the strategy-side vector type
type Vector = match.Vector

// Config selects and configures a source. Kind is "lexicon" (default) or
// "http"; URL and Timeout apply to the http kind only
type Config struct {
	Kind    string
	URL     string
	Timeout time.Duration
}

// New constructs the configured source. Unknown kinds fail so a bad
// MATCH_EMBED_SOURCE value dies at boot
func New(cfg Config) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "lexicon":
		return NewLexicon()
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, perr.New(perr.ErrorCodeInvalidArgument, "embed: http source requires a url")
		}
		return NewHTTP(Options{BaseURL: cfg.URL, Timeout: cfg.Timeout}), nil
	default:
		return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "embed: unknown source kind %q", cfg.Kind)
	}
}
