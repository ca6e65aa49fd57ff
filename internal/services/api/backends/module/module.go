// Package module wires the backend catalog into the API using modkit
package module

import (
	"fmt"
	"net/http"

	"shelfmatch/internal/adapters/source"
	modkit "shelfmatch/internal/modkit"
	"shelfmatch/internal/modkit/httpkit"
	str "shelfmatch/internal/platform/strings"

	"shelfmatch/internal/services/api/backends/domain"
	bhttp "shelfmatch/internal/services/api/backends/http"
	bsvc "shelfmatch/internal/services/api/backends/service"
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

	svc bsvc.Service
}

// Ports exposes the boot-validated registry for sibling modules
type Ports struct {
	Resolver domain.ResolverPort
}

// New constructs the backends module. Every declared backend's adapter is
// constructed and validated here; a bad type tag or failed constructor
// panics so the process dies at boot
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("backends"),
		modkit.WithPrefix("/backends"),
	}, opts...)...)

	specs := FromConfig(deps.Cfg)
	backends := make([]domain.Backend, 0, len(specs))
	for _, spec := range specs {
		adapter, err := source.New(spec.Adapter, spec.Cfg)
		if err != nil {
			panic(fmt.Sprintf("backends: backend %q: %v", spec.Name, err))
		}
		backends = append(backends, domain.Backend{
			Name:        spec.Name,
			Description: spec.Description,
			Language:    spec.Language,
			AdapterTag:  spec.Adapter,
			Adapter:     adapter,
		})
	}
	reg, err := domain.NewRegistry(backends)
	if err != nil {
		panic(err)
	}

	svc := bsvc.New(reg)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Resolver: reg}

	external := b.Register
	m.register = func(r httpkit.Router) {
		bhttp.Register(r, m.svc)
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

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
