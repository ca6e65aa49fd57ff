// Package api provides the HTTP API for the application
package api

import (
	"shelfmatch/internal/platform/config"
	"shelfmatch/internal/platform/logger"
	phttp "shelfmatch/internal/platform/net/http"
	"shelfmatch/internal/platform/store"

	"shelfmatch/internal/modkit"
	"shelfmatch/internal/modkit/httpkit"
	"shelfmatch/internal/modkit/module"
	"shelfmatch/internal/modkit/swaggerkit"

	bdomain "shelfmatch/internal/services/api/backends/domain"
	backendsmod "shelfmatch/internal/services/api/backends/module"
	mdomain "shelfmatch/internal/services/api/matching/domain"
	matchingmod "shelfmatch/internal/services/api/matching/module"
	metamod "shelfmatch/internal/services/api/meta/module"
	pdomain "shelfmatch/internal/services/api/pending/domain"
	pendingmod "shelfmatch/internal/services/api/pending/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// Backends come up first; every other module resolves catalog adapters
	// through their port
	backends := backendsmod.New(deps)
	resolver := module.MustPortsOf[bdomain.ResolverPort](backends)

	// Pending writes learned aliases back through the resolver on resolve
	pending := pendingmod.New(deps, modkit.WithPorts(pendingmod.Ports{
		Resolver: resolver,
	}))
	pendingPort := module.MustPortsOf[pdomain.ServicePort](pending)

	// Matching consumes both: catalogs to match against, the queue for misses
	matching := matchingmod.New(deps, modkit.WithPorts(matchingmod.Ports{
		Resolver: resolver,
		Pending:  pendingPort,
	}))
	matcherInfo := module.MustPortsOf[mdomain.InfoPort](matching)

	mods := []module.Module{
		metamod.New(deps, modkit.WithPorts(metamod.Ports{Matcher: matcherInfo})),
		backends,
		pending,
		matching,
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
