// @title         Shelfmatch API
// @version       0.1.0
// @description   Matches free-text product queries against inventory backends

package main

import (
	"context"

	"shelfmatch/internal/platform/config"
	"shelfmatch/internal/platform/logger"
	phttp "shelfmatch/internal/platform/net/http"
	"shelfmatch/internal/platform/store"

	"shelfmatch/internal/services/api"
	prepo "shelfmatch/internal/services/api/pending/repo"
	mlrepo "shelfmatch/internal/services/matchlog/repo"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*

	// bring up logging early
	l := logger.Get()

	// open the platform store. The ClickHouse event log is optional;
	// matching runs fine without it and the log surfaces report 503
	stCfg := store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
	}
	if chCfg.MayBool("ENABLED", false) {
		stCfg.CH = store.CHConfig{
			Enabled:    true,
			URL:        chCfg.MustString("DBURL"),
			ClientName: "shelfmatch",
			ClientTag:  "api",
		}
	}

	st, err := store.Open(context.Background(), stCfg, store.WithLogger(*logger.Get()))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// first-boot provisioning for the review queue and, when the event log
	// is on, the events table
	if err := prepo.NewPG().Bind(st.PG).EnsureSchema(context.Background()); err != nil {
		l.Panic().Err(err).Msg("pending schema provisioning failed")
	}
	if st.CH != nil {
		if err := mlrepo.NewCH(st.CH).EnsureSchema(context.Background()); err != nil {
			l.Panic().Err(err).Msg("match event schema provisioning failed")
		}
	}

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	// mount our API. Modules read their own namespaces (MATCH_*) so Mount
	// gets the root config, not the CORE_API_ scope
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	// run
	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
