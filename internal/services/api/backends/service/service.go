// Package service contains backend catalog workflows
package service

import (
	"context"

	perr "shelfmatch/internal/platform/errors"
	"shelfmatch/internal/services/api/backends/domain"
)

// Service is the public service port
type Service interface {
	List(ctx context.Context) []domain.Info
	Products(ctx context.Context, backend string) (domain.ProductsResponse, error)
	ProductURL(ctx context.Context, backend, productID string) (domain.ProductURLResponse, error)
}

// Svc implements the service port over the boot-validated registry
type Svc struct {
	reg domain.ResolverPort
}

// New constructs the service
func New(reg domain.ResolverPort) *Svc {
	if reg == nil {
		panic("backends.Service requires a non nil Registry")
	}
	return &Svc{reg: reg}
}

// List returns the configured backends in declaration order
func (s *Svc) List(_ context.Context) []domain.Info {
	all := s.reg.All()
	out := make([]domain.Info, 0, len(all))
	for _, b := range all {
		out = append(out, domain.Info{
			Name:        b.Name,
			Description: b.Description,
			Language:    b.Language,
			Adapter:     b.AdapterTag,
		})
	}
	return out
}

// Products fetches the live catalog from the backend's adapter
func (s *Svc) Products(ctx context.Context, backend string) (domain.ProductsResponse, error) {
	b, ok := s.reg.Get(backend)
	if !ok {
		return domain.ProductsResponse{}, perr.NotFoundf("backend %q is not configured", backend)
	}
	products, err := b.Adapter.ListProducts(ctx)
	if err != nil {
		return domain.ProductsResponse{}, perr.Wrapf(err, perr.ErrorCodeUnavailable,
			"backend %q catalog fetch failed", b.Name)
	}
	return domain.ProductsResponse{Backend: b.Name, Products: products, Count: len(products)}, nil
}

// ProductURL resolves the external deep link for a product. An empty URL is
// data, not an error; adapters without an external UI return none
func (s *Svc) ProductURL(_ context.Context, backend, productID string) (domain.ProductURLResponse, error) {
	b, ok := s.reg.Get(backend)
	if !ok {
		return domain.ProductURLResponse{}, perr.NotFoundf("backend %q is not configured", backend)
	}
	return domain.ProductURLResponse{
		Backend:   b.Name,
		ProductID: productID,
		URL:       b.Adapter.ProductURL(productID),
	}, nil
}
