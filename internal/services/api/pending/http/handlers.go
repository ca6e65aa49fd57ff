// Package http provides http transport for the pending queue
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shelfmatch/internal/modkit/httpkit"
	"shelfmatch/internal/services/api/pending/domain"
	svc "shelfmatch/internal/services/api/pending/service"
)

// Register mounts the pending queue endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.list)
	httpkit.PostJSON(r, "/resolve", h.resolve)
	httpkit.Delete(r, "/{id}", h.remove)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /pending Pending pendingList
// @Summary List queued queries awaiting a verdict
// @Tags Pending
// @Produce json
// @Param status query string false "Status filter (pending, resolved, ignored)" default(pending)
// @Param skip query int false "Items to skip" default(0)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} domain.ListResponse "ok"
// @Failure 400 {object} httpkit.Envelope "unknown status"
// @Router /pending [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()
	return h.svc.List(r.Context(), domain.ListInput{
		Status: q.Get("status"),
		Skip:   queryInt(q.Get("skip"), 0),
		Limit:  queryInt(q.Get("limit"), 0),
	})
}

// swagger:route POST /pending/resolve Pending pendingResolve
// @Summary Resolve a pending query by assigning an alias or ignoring it
// @Tags Pending
// @Accept json
// @Produce json
// @Param payload body domain.ResolveInput true "Verdict"
// @Success 200 {object} domain.Message "ok"
// @Failure 404 {object} httpkit.Envelope "unknown query or product"
// @Failure 409 {object} httpkit.Envelope "already resolved"
// @Failure 503 {object} httpkit.Envelope "backend rejected the alias write"
// @Router /pending/resolve [post]
func (h *handlers) resolve(r *stdhttp.Request, in domain.ResolveInput) (any, error) {
	if _, err := h.svc.Resolve(r.Context(), in); err != nil {
		return nil, err
	}
	return domain.Message{Message: "pending query resolved successfully"}, nil
}

// swagger:route DELETE /pending/{id} Pending pendingDelete
// @Summary Delete a pending query without resolving it
// @Tags Pending
// @Produce json
// @Param id path string true "Pending query id"
// @Success 200 {object} domain.Message "ok"
// @Failure 404 {object} httpkit.Envelope "unknown query"
// @Router /pending/{id} [delete]
func (h *handlers) remove(r *stdhttp.Request) (any, error) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return nil, err
	}
	return domain.Message{Message: "pending query deleted successfully"}, nil
}

// queryInt reads an optional integer query parameter; anything unparseable
// falls back to def
func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
