// Package http provides http transport for the matcher
package http

import (
	stdhttp "net/http"
	"strconv"

	"shelfmatch/internal/modkit/httpkit"
	perr "shelfmatch/internal/platform/errors"
	"shelfmatch/internal/services/api/matching/domain"
	svc "shelfmatch/internal/services/api/matching/service"
)

// Register mounts the matcher endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.PostJSON(r, "/match", h.match)
	httpkit.Get(r, "/settings", h.settings)
	httpkit.Get(r, "/languages", h.languages)
	httpkit.Get(r, "/stats", h.stats)
	httpkit.Get(r, "/logs", h.logs)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /matching/match Matching matchingMatch
// @Summary Match free text against a backend's product catalog
// @Tags Matching
// @Accept json
// @Produce json
// @Param payload body domain.MatchInput true "Text to match"
// @Success 200 {object} domain.MatchResult "ok"
// @Failure 400 {object} httpkit.Envelope "unknown backend or invalid payload"
// @Failure 503 {object} httpkit.Envelope "backend catalog unavailable"
// @Router /matching/match [post]
func (h *handlers) match(r *stdhttp.Request, in domain.MatchInput) (any, error) {
	return h.svc.Match(r.Context(), in)
}

// swagger:route GET /matching/settings Matching matchingSettings
// @Summary Report the global matcher settings
// @Tags Matching
// @Produce json
// @Success 200 {object} domain.Settings "ok"
// @Router /matching/settings [get]
func (h *handlers) settings(r *stdhttp.Request) (any, error) {
	return h.svc.Settings(), nil
}

// swagger:route GET /matching/languages Matching matchingLanguages
// @Summary List the loaded language packs
// @Tags Matching
// @Produce json
// @Success 200 {array} string "ok"
// @Router /matching/languages [get]
func (h *handlers) languages(r *stdhttp.Request) (any, error) {
	return h.svc.Languages(), nil
}

// swagger:route GET /matching/stats Matching matchingStats
// @Summary Summarize one backend's matching state
// @Tags Matching
// @Produce json
// @Param backend query string true "Backend name"
// @Success 200 {object} domain.BackendStats "ok"
// @Failure 400 {object} httpkit.Envelope "missing or unknown backend"
// @Failure 503 {object} httpkit.Envelope "backend catalog unavailable"
// @Router /matching/stats [get]
func (h *handlers) stats(r *stdhttp.Request) (any, error) {
	backend := r.URL.Query().Get("backend")
	if backend == "" {
		return nil, perr.New(perr.ErrorCodeValidation, "backend query parameter is required")
	}
	return h.svc.Stats(r.Context(), backend)
}

// swagger:route GET /matching/logs Matching matchingLogs
// @Summary Page through recorded match attempts, newest first
// @Tags Matching
// @Produce json
// @Param backend query string false "Backend filter"
// @Param skip query int false "Items to skip" default(0)
// @Param limit query int false "Page size" default(100)
// @Success 200 {object} domain.LogsResponse "ok"
// @Failure 503 {object} httpkit.Envelope "event log not configured"
// @Router /matching/logs [get]
func (h *handlers) logs(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()
	return h.svc.Logs(r.Context(), domain.LogsInput{
		Backend: q.Get("backend"),
		Skip:    queryInt(q.Get("skip"), 0),
		Limit:   queryInt(q.Get("limit"), 0),
	})
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
