package source

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	perr "shelfmatch/internal/platform/errors"
)

//go:embed catalog.json
var catalogJSON []byte

type catalogFile struct {
	Version  int               `json:"version"`
	Products []ExternalProduct `json:"products"`
}

// Mock serves an embedded catalog of realistically messy grocery entries.
// It is the default backend for demos and tests. AddAlias mutates the
// in-memory copy only; nothing survives a restart
type Mock struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*ExternalProduct
}

func init() {
	Register("mock", func(map[string]string) (Adapter, error) { return NewMock() })
}

// NewMock parses the embedded catalog
func NewMock() (*Mock, error) {
	var f catalogFile
	if err := json.Unmarshal(catalogJSON, &f); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "mock catalog is corrupt")
	}
	if f.Version != 1 {
		return nil, perr.Newf(perr.ErrorCodeUnknown, "mock catalog version %d unsupported", f.Version)
	}
	m := &Mock{byID: make(map[string]*ExternalProduct, len(f.Products))}
	for i := range f.Products {
		p := f.Products[i]
		m.order = append(m.order, p.ID)
		m.byID[p.ID] = &p
	}
	return m, nil
}

func (m *Mock) ListProducts(_ context.Context) ([]ExternalProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ExternalProduct, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, snapshot(m.byID[id]))
	}
	return out, nil
}

func (m *Mock) Product(_ context.Context, id string) (*ExternalProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, perr.NotFoundf("product %q not found", id)
	}
	cp := snapshot(p)
	return &cp, nil
}

func (m *Mock) AddAlias(_ context.Context, productID, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[productID]
	if !ok {
		return perr.NotFoundf("product %q not found", productID)
	}
	if p.HasAlias(alias) {
		return nil
	}
	p.Aliases = append(p.Aliases, alias)
	return nil
}

func (m *Mock) Search(_ context.Context, query string, limit int) ([]ExternalProduct, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ExternalProduct
	for _, id := range m.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		p := m.byID[id]
		if q == "" || matchesQuery(p, q) {
			out = append(out, snapshot(p))
		}
	}
	return out, nil
}

func (m *Mock) ProductURL(productID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.byID[productID]; !ok {
		return ""
	}
	return "https://example-inventory.demo/products/" + productID
}

func matchesQuery(p *ExternalProduct, q string) bool {
	return strings.Contains(strings.ToLower(p.Name()), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

// snapshot copies a product so callers can't mutate the shared alias slice
func snapshot(p *ExternalProduct) ExternalProduct {
	cp := *p
	cp.Aliases = append([]string(nil), p.Aliases...)
	return cp
}
