// Package langpack loads and compiles per-language normalization rules from
// the embedded langs.json: stopwords, abbreviation expansions and a lemma table
package langpack

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed langs.json
var embedded []byte

type rawRules struct {
	Name       string            `json:"name"`
	Stopwords  []string          `json:"stopwords"`
	Expansions map[string]string `json:"expansions"`
	Lemmas     map[string]string `json:"lemmas"`
}

type rawPack struct {
	Version   int                 `json:"version"`
	Languages map[string]rawRules `json:"languages"`
}

// Rules is the compiled rule set for one language
type Rules struct {
	Lang string
	Name string

	// Stopset removes tokens after expansion and lemmatization
	Stopset map[string]struct{}

	// Expansions maps an abbreviation to one or more replacement tokens
	// (multi word expansions like "xl" -> "extra large" are pre split)
	Expansions map[string][]string

	// Lemmas folds inflected forms to a canonical token
	Lemmas map[string]string
}

// Pack holds compiled rules for every supported language
type Pack struct {
	Version int

	rules map[string]*Rules
	langs []string
}

// Load returns the compiled pack from the embedded langs.json
func Load() (*Pack, error) {
	var rp rawPack
	if err := json.Unmarshal(embedded, &rp); err != nil {
		return nil, fmt.Errorf("langpack: parse langs.json: %w", err)
	}
	if rp.Version != 1 {
		return nil, fmt.Errorf("langpack: unsupported langs.json version %d (want 1)", rp.Version)
	}

	p := &Pack{
		Version: rp.Version,
		rules:   make(map[string]*Rules, len(rp.Languages)),
	}

	for lang, rr := range rp.Languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		r := &Rules{
			Lang:       lang,
			Name:       rr.Name,
			Stopset:    make(map[string]struct{}, len(rr.Stopwords)),
			Expansions: make(map[string][]string, len(rr.Expansions)),
			Lemmas:     make(map[string]string, len(rr.Lemmas)),
		}
		for _, s := range rr.Stopwords {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				r.Stopset[s] = struct{}{}
			}
		}
		for k, v := range rr.Expansions {
			k = strings.ToLower(strings.TrimSpace(k))
			parts := strings.Fields(strings.ToLower(v))
			if k == "" || len(parts) == 0 {
				continue
			}
			r.Expansions[k] = parts
		}
		for k, v := range rr.Lemmas {
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.ToLower(strings.TrimSpace(v))
			if k == "" || v == "" || k == v {
				continue
			}
			r.Lemmas[k] = v
		}
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("langpack: %s: %w", lang, err)
		}
		p.rules[lang] = r
		p.langs = append(p.langs, lang)
	}

	sort.Strings(p.langs)
	return p, nil
}

// validate rejects rule chains that would break normalization idempotence:
// after one expansion+lemma pass, every produced token must be a fixed point.
// Expansion outputs get one lemma hop (the lemma stage runs after expansion),
// lemma values must already be terminal
func (r *Rules) validate() error {
	terminal := func(tok string) error {
		if _, ok := r.Expansions[tok]; ok {
			return fmt.Errorf("produced token %q re-expands", tok)
		}
		if _, ok := r.Lemmas[tok]; ok {
			return fmt.Errorf("produced token %q re-lemmatizes", tok)
		}
		return nil
	}
	for k, parts := range r.Expansions {
		for _, tok := range parts {
			if lem, ok := r.Lemmas[tok]; ok {
				tok = lem
			}
			if err := terminal(tok); err != nil {
				return fmt.Errorf("expansion %q: %w", k, err)
			}
		}
	}
	for k, v := range r.Lemmas {
		if err := terminal(v); err != nil {
			return fmt.Errorf("lemma %q: %w", k, err)
		}
	}
	return nil
}

// Rules returns the compiled rules for a language tag, or false when the
// language has no pack. Region subtags fall back to the base language
// so "es-MX" resolves to "es"
func (p *Pack) Rules(lang string) (*Rules, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if r, ok := p.rules[lang]; ok {
		return r, true
	}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		if r, ok := p.rules[lang[:i]]; ok {
			return r, true
		}
	}
	return nil, false
}

// Languages lists supported language tags in sorted order
func (p *Pack) Languages() []string {
	out := make([]string, len(p.langs))
	copy(out, p.langs)
	return out
}
