// @title         Proofwork API
// @version       0.1.0
// @description   Two sided compute marketplace: bounties, jobs, submissions, verification and payouts

package main

import (
	"context"

	"proofwork/internal/platform/config"
	"proofwork/internal/platform/logger"
	phttp "proofwork/internal/platform/net/http"
	"proofwork/internal/platform/store"

	"proofwork/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	// bring up logging early
	l := logger.Get()

	// columnar store is an optional seam; the audit mirror no-ops
	// without it
	chEnabled := chCfg.MayBool("ENABLED", false)
	chCfgStore := store.CHConfig{Enabled: chEnabled}
	if chEnabled {
		chCfgStore.URL = chCfg.MustString("DBURL")
		chCfgStore.ClientName = "proofwork"
		chCfgStore.ClientTag = "api"
	}

	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: chCfgStore,
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
