// Package source defines the product source adapter contract and a type-tag
// registry for constructing adapters from backend configuration.
//
// An adapter speaks to one external inventory system (Grocy, the embedded
// mock catalog). All adapters are constructed at boot through the registry;
// an unknown type tag or a failed constructor is a boot error, never a
// request-time surprise
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ExternalProduct is one entry of an external catalog. Aliases is ordered
// and never empty for a valid product; the first alias is the canonical
// display name
type ExternalProduct struct {
	ID          string   `json:"id"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
}

// Name returns the canonical display name (first alias)
func (p ExternalProduct) Name() string {
	if len(p.Aliases) == 0 {
		return ""
	}
	return p.Aliases[0]
}

// HasAlias reports whether alias is already attached to the product
// (exact string match, no normalization)
func (p ExternalProduct) HasAlias(alias string) bool {
	for _, a := range p.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// Adapter is the capability set the matcher needs from an external product
// system. Implementations must be safe for concurrent use
type Adapter interface {
	// ListProducts returns the full catalog
	ListProducts(ctx context.Context) ([]ExternalProduct, error)

	// Product fetches a single product by ID. Missing products return a
	// NotFound error
	Product(ctx context.Context, id string) (*ExternalProduct, error)

	// AddAlias attaches a learned alias to a product. Attaching an alias
	// that is already present succeeds without modifying anything
	AddAlias(ctx context.Context, productID, alias string) error

	// Search filters the catalog by a free-text query, case-insensitive,
	// returning at most limit products
	Search(ctx context.Context, query string, limit int) ([]ExternalProduct, error)

	// ProductURL returns a browser link for the product, or "" when the
	// backend has no external UI
	ProductURL(productID string) string
}

// Factory builds an adapter from its per-backend settings. Keys are
// lowercase snake_case (base_url, api_key, external_url)
type Factory func(cfg map[string]string) (Adapter, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes an adapter type available under a type tag. Intended to be
// called from package init; duplicate tags panic
func Register(tag string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := factories[tag]; dup {
		panic(fmt.Sprintf("source: adapter %q registered twice", tag))
	}
	factories[tag] = f
}

// New constructs an adapter for the given type tag. Unknown tags report the
// registered set so a typo in configuration is obvious
func New(tag string, cfg map[string]string) (Adapter, error) {
	regMu.RLock()
	f, ok := factories[strings.ToLower(strings.TrimSpace(tag))]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source: unknown adapter type %q (available: %s)", tag, strings.Join(Tags(), ", "))
	}
	return f(cfg)
}

// Tags lists the registered adapter type tags, sorted
func Tags() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	tags := make([]string, 0, len(factories))
	for t := range factories {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
