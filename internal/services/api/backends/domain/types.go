// Package domain holds the backend catalog types shared across API modules
package domain

import (
	"strings"

	"shelfmatch/internal/adapters/source"
	perr "shelfmatch/internal/platform/errors"
)

// Backend is one configured product source: a named adapter instance plus
// the language its catalog is written in
type Backend struct {
	Name        string
	Description string
	Language    string
	AdapterTag  string
	Adapter     source.Adapter
}

// Registry is the boot-validated backend set. Names are lowercased once at
// construction; lookups fold case the same way
type Registry struct {
	order  []string
	byName map[string]Backend
}

// NewRegistry validates the configured backends. Any defect here is a boot
// failure, never a request-time surprise
func NewRegistry(backends []Backend) (*Registry, error) {
	r := &Registry{byName: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		name := strings.ToLower(strings.TrimSpace(b.Name))
		if name == "" {
			return nil, perr.New(perr.ErrorCodeInvalidArgument, "backends: backend with empty name")
		}
		if _, dup := r.byName[name]; dup {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "backends: duplicate backend %q", name)
		}
		if b.Adapter == nil {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "backends: backend %q has no adapter", name)
		}
		b.Name = name
		r.byName[name] = b
		r.order = append(r.order, name)
	}
	if len(r.order) == 0 {
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "backends: no backends configured")
	}
	return r, nil
}

// Get looks a backend up by name, case-insensitively
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}

// All returns the backends in declaration order
func (r *Registry) All() []Backend {
	out := make([]Backend, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
