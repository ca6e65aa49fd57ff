// Command shelfmatch-langpacker assembles per-language normalization
// fragments into the langs.json the langpack package embeds
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// fragmentFile is one per-language rules fragment. Multiple fragments for
// the same language merge: stopwords union, expansions and lemmas by key
// with later files winning on conflict
type fragmentFile struct {
	Language   string            `json:"language"`
	Name       string            `json:"name,omitempty"`
	Stopwords  []string          `json:"stopwords,omitempty"`
	Expansions map[string]string `json:"expansions,omitempty"`
	Lemmas     map[string]string `json:"lemmas,omitempty"`
}

type outRules struct {
	Name       string            `json:"name"`
	Stopwords  []string          `json:"stopwords"`
	Expansions map[string]string `json:"expansions,omitempty"`
	Lemmas     map[string]string `json:"lemmas,omitempty"`
}

type outPack struct {
	Version   int                 `json:"version"`
	Languages map[string]outRules `json:"languages"`
}

func readJSON[T any](path string, into *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, into); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func must(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func findFragmentFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// resolveRoot tries, in order: flag, env, common locations
func resolveRoot(flagRoot string) (string, []string, error) {
	var attempts []string
	try := func(p string) (string, bool) {
		if p == "" {
			return "", false
		}
		attempts = append(attempts, p)
		return p, pathExists(p)
	}

	if root, ok := try(flagRoot); ok {
		return root, attempts, nil
	}
	if env := strings.TrimSpace(os.Getenv("SHELFMATCH_LANGS_ROOT")); env != "" {
		if root, ok := try(env); ok {
			return root, attempts, nil
		}
	}
	for _, c := range []string{"./langs", "/app/langs"} {
		if root, ok := try(c); ok {
			return root, attempts, nil
		}
	}
	return "", attempts, errors.New("language fragments not found in any known location")
}

type merged struct {
	name       string
	stopwords  map[string]struct{}
	expansions map[string]string
	lemmas     map[string]string
}

func mergeFragment(acc map[string]*merged, path string, fr fragmentFile) error {
	lang := strings.ToLower(strings.TrimSpace(fr.Language))
	if lang == "" {
		return fmt.Errorf("fragment missing language: %s", path)
	}
	m := acc[lang]
	if m == nil {
		m = &merged{
			stopwords:  map[string]struct{}{},
			expansions: map[string]string{},
			lemmas:     map[string]string{},
		}
		acc[lang] = m
	}
	if n := strings.TrimSpace(fr.Name); n != "" {
		m.name = n
	}
	for _, s := range fr.Stopwords {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			m.stopwords[s] = struct{}{}
		}
	}
	mergeMap := func(dst map[string]string, src map[string]string, kind string) {
		for k, v := range src {
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.ToLower(strings.TrimSpace(v))
			if k == "" || v == "" {
				continue
			}
			if prev, dup := dst[k]; dup && prev != v {
				_, _ = fmt.Fprintf(os.Stderr, "warning: %s %s %q redefined %q -> %q (%s)\n", lang, kind, k, prev, v, path)
			}
			dst[k] = v
		}
	}
	mergeMap(m.expansions, fr.Expansions, "expansion")
	mergeMap(m.lemmas, fr.Lemmas, "lemma")
	return nil
}

// validateRules applies the same fixed-point rule langpack.Load enforces, so
// a broken chain fails the pack step instead of the service boot: after one
// expansion+lemma pass every produced token must be terminal
func validateRules(lang string, r outRules) error {
	terminal := func(tok string) error {
		if _, ok := r.Expansions[tok]; ok {
			return fmt.Errorf("%s: produced token %q re-expands", lang, tok)
		}
		if v, ok := r.Lemmas[tok]; ok && v != tok {
			return fmt.Errorf("%s: produced token %q re-lemmatizes", lang, tok)
		}
		return nil
	}
	for k, v := range r.Expansions {
		for _, tok := range strings.Fields(v) {
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

func assemble(root string) (outPack, error) {
	fragPaths, err := findFragmentFiles(root)
	if err != nil {
		return outPack{}, err
	}
	if len(fragPaths) == 0 {
		return outPack{}, errors.New("no fragment files found under " + root)
	}

	acc := map[string]*merged{}
	for _, p := range fragPaths {
		var fr fragmentFile
		if err := readJSON(p, &fr); err != nil {
			return outPack{}, err
		}
		if err := mergeFragment(acc, p, fr); err != nil {
			return outPack{}, err
		}
	}

	out := outPack{Version: 1, Languages: make(map[string]outRules, len(acc))}
	for lang, m := range acc {
		stops := make([]string, 0, len(m.stopwords))
		for s := range m.stopwords {
			stops = append(stops, s)
		}
		sort.Strings(stops)

		name := m.name
		if name == "" {
			name = lang
		}
		r := outRules{
			Name:       name,
			Stopwords:  stops,
			Expansions: m.expansions,
			Lemmas:     m.lemmas,
		}
		if err := validateRules(lang, r); err != nil {
			return outPack{}, err
		}
		out.Languages[lang] = r
	}
	return out, nil
}

func main() {
	var (
		flagRoot = flag.String("root", "", "path to the language fragments directory (e.g., ./langs). If empty, auto-discover")
		out      = flag.String("out", "./internal/core/langpack/langs.json", "output path or '-' for stdout")
		pretty   = flag.Bool("pretty", true, "pretty-print JSON")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	root, attempts, err := resolveRoot(strings.TrimSpace(*flagRoot))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to locate language fragments (looked in):\n")
		for _, a := range attempts {
			_, _ = fmt.Fprintf(os.Stderr, "  - %s\n", a)
		}
		_, _ = fmt.Fprintf(os.Stderr, "hint: mount ./langs into the container (e.g., - ./langs:/app/langs:ro) or set SHELFMATCH_LANGS_ROOT\n") //nolint:lll
		must(err)
	}
	if *verbose {
		_, _ = fmt.Fprintf(os.Stderr, "using language fragments root: %s\n", root)
	}

	obj, err := assemble(root)
	must(err)

	var enc []byte
	if *pretty {
		enc, err = json.MarshalIndent(obj, "", "  ")
	} else {
		enc, err = json.Marshal(obj)
	}
	must(err)

	if *out == "-" {
		if _, err := os.Stdout.Write(enc); err != nil {
			must(err)
		}
		if _, err := os.Stdout.WriteString("\n"); err != nil {
			must(err)
		}
		return
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		must(err)
	}
	must(os.WriteFile(*out, enc, 0o644))
	if *verbose {
		_, _ = fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", *out, len(enc))
	}
}
