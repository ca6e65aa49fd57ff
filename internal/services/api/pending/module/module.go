// Package module wires the pending queue into the API using modkit
package module

import (
	"net/http"

	modkit "shelfmatch/internal/modkit"
	"shelfmatch/internal/modkit/httpkit"
	str "shelfmatch/internal/platform/strings"

	bdomain "shelfmatch/internal/services/api/backends/domain"
	phttp "shelfmatch/internal/services/api/pending/http"
	prepo "shelfmatch/internal/services/api/pending/repo"
	psvc "shelfmatch/internal/services/api/pending/service"
)

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc psvc.Service
}

// Ports declares the required injected port(s) for this module
type Ports struct {
	Resolver bdomain.ResolverPort
}

// New constructs the pending module. Resolution writes aliases through the
// injected backend resolver, so the backends module must be built first
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("pending"),
		modkit.WithPrefix("/pending"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Resolver == nil {
		panic("pending module requires the backends Resolver port")
	}
	if deps.PG == nil {
		panic("pending module requires Postgres")
	}

	svc := psvc.New(deps.PG, prepo.NewPG(), injected.Resolver, psvc.Config{})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptPendingPort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		phttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
