// Package http provides http transport for the backend catalog
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"shelfmatch/internal/modkit/httpkit"
	svc "shelfmatch/internal/services/api/backends/service"
)

// Register mounts the backend catalog endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{backend}/products", h.products)
	httpkit.Get(r, "/{backend}/products/{id}/url", h.productURL)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /backends Backends backendsList
// @Summary List configured backends
// @Tags Backends
// @Produce json
// @Success 200 {array} domain.Info "ok"
// @Router /backends [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	return h.svc.List(r.Context()), nil
}

// swagger:route GET /backends/{backend}/products Backends backendsProducts
// @Summary Live product listing from one backend
// @Tags Backends
// @Produce json
// @Param backend path string true "Backend name"
// @Success 200 {object} domain.ProductsResponse "ok"
// @Failure 404 {object} httpkit.Envelope "unknown backend"
// @Router /backends/{backend}/products [get]
func (h *handlers) products(r *stdhttp.Request) (any, error) {
	return h.svc.Products(r.Context(), chi.URLParam(r, "backend"))
}

// swagger:route GET /backends/{backend}/products/{id}/url Backends backendsProductURL
// @Summary External deep link for one product
// @Tags Backends
// @Produce json
// @Param backend path string true "Backend name"
// @Param id path string true "Product id"
// @Success 200 {object} domain.ProductURLResponse "ok"
// @Failure 404 {object} httpkit.Envelope "unknown backend"
// @Router /backends/{backend}/products/{id}/url [get]
func (h *handlers) productURL(r *stdhttp.Request) (any, error) {
	return h.svc.ProductURL(r.Context(), chi.URLParam(r, "backend"), chi.URLParam(r, "id"))
}
