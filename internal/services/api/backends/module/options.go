package module

import (
	"strings"

	"shelfmatch/internal/platform/config"
)

// Spec declares one backend before its adapter is constructed
type Spec struct {
	Name        string
	Description string
	Language    string
	Adapter     string
	Cfg         map[string]string
}

// adapterKeys maps per-backend env suffixes onto the factory config keys the
// source registry understands
var adapterKeys = map[string]string{
	"URL":          "base_url",
	"API_KEY":      "api_key",
	"EXTERNAL_URL": "external_url",
}

// FromConfig reads MATCH_BACKENDS plus the per-backend
// MATCH_BACKEND_<NAME>_* namespace. Backend names are lowercased; hyphens
// and dots become underscores inside the env key. With nothing configured a
// single "demo" backend over the embedded mock catalog comes up, which keeps
// a bare process useful; the catalog is Spanish-first so the language
// default follows it
func FromConfig(cfg config.Conf) []Spec {
	mc := cfg.Prefix("MATCH_")
	names := mc.MayCSV("BACKENDS", []string{"demo"})

	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		bc := mc.Prefix("BACKEND_" + envKey(name) + "_")
		spec := Spec{
			Name:        name,
			Description: bc.MayString("DESCRIPTION", ""),
			Language:    bc.MayString("LANGUAGE", "es"),
			Adapter:     bc.MayString("ADAPTER", "mock"),
			Cfg:         map[string]string{},
		}
		for env, key := range adapterKeys {
			if v := bc.MayString(env, ""); v != "" {
				spec.Cfg[key] = v
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

func envKey(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}
