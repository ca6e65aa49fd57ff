// Package module wires the matcher into the API using modkit
package module

import (
	"net/http"

	"shelfmatch/internal/adapters/embed"
	"shelfmatch/internal/core/langpack"
	"shelfmatch/internal/core/match"
	"shelfmatch/internal/core/normalize"
	modkit "shelfmatch/internal/modkit"
	"shelfmatch/internal/modkit/httpkit"
	str "shelfmatch/internal/platform/strings"

	bdomain "shelfmatch/internal/services/api/backends/domain"
	mhttp "shelfmatch/internal/services/api/matching/http"
	msvc "shelfmatch/internal/services/api/matching/service"
	pdomain "shelfmatch/internal/services/api/pending/domain"
	mlrepo "shelfmatch/internal/services/matchlog/repo"
	mlsvc "shelfmatch/internal/services/matchlog/service"
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

	svc msvc.Service
}

// Ports declares the required injected ports for this module
type Ports struct {
	Resolver bdomain.ResolverPort
	Pending  pdomain.ServicePort
}

// New constructs the matching module. Language packs, the embedding source
// and the strategy chain all resolve here, so a bad MATCH_* value dies at
// boot instead of on the first request. Match events flow to ClickHouse
// when deps.CH is wired; without it matches still work and the log
// surfaces report unavailable
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("matching"),
		modkit.WithPrefix("/matching"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Resolver == nil {
		panic("matching module requires the backends Resolver port")
	}
	if injected.Pending == nil {
		panic("matching module requires the pending ServicePort")
	}

	o := FromConfig(deps.Cfg)

	pack, err := langpack.Load()
	if err != nil {
		panic("matching module: " + err.Error())
	}
	src, err := embed.New(embed.Config{Kind: o.EmbedSource, URL: o.EmbedURL, Timeout: o.EmbedTimeout})
	if err != nil {
		panic("matching module: " + err.Error())
	}
	strategies, err := match.ForNames(o.Strategies, src, deps.Log)
	if err != nil {
		panic("matching module: " + err.Error())
	}

	var events msvc.EventLog
	if deps.CH != nil {
		events = mlsvc.New(mlrepo.NewCH(deps.CH), mlsvc.Config{})
	}

	svc := msvc.New(msvc.Deps{
		Backends:  injected.Resolver,
		Pending:   injected.Pending,
		Norm:      normalize.New(pack),
		Pipeline:  match.NewPipeline(strategies, o.MaxCandidates),
		Languages: pack.Languages(),
		Events:    events,
	}, msvc.Config{
		DefaultThreshold: o.DefaultThreshold,
		MaxCandidates:    o.MaxCandidates,
		MaxPool:          o.MaxPool,
		EmbedSource:      src.Name(),
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptMatchingPort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		mhttp.Register(r, m.svc)
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
