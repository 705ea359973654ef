package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"proofwork/internal/modkit"
	"proofwork/internal/platform/config"
	"proofwork/internal/platform/logger"
	"proofwork/internal/platform/store"

	"proofwork/internal/services/api"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	fOnly := flag.String("only", "", "comma-separated subset of loops to run (default: all); names: outbox-dispatch outbox-reap lease-sweep claim-sweep artifact-scan payout-settle audit-mirror")
	flag.Parse()

	chEnabled := chCfg.MayBool("ENABLED", false)
	chStore := store.CHConfig{Enabled: chEnabled}
	if chEnabled {
		chStore.URL = chCfg.MustString("DBURL")
		chStore.ClientName = "proofwork"
		chStore.ClientTag = "worker"
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
			CH: chStore,
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}
	mods := api.Build(deps)

	want := map[string]bool{}
	if *fOnly != "" {
		for _, name := range strings.Split(*fOnly, ",") {
			want[strings.TrimSpace(name)] = true
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	started := 0
	for _, loop := range mods.Loops() {
		if len(want) > 0 && !want[loop.Name] {
			continue
		}
		run := loop.Run
		name := loop.Name
		g.Go(func() error {
			l.Info().Str("loop", name).Msg("loop started")
			err := run(ctx)
			l.Info().Str("loop", name).Msg("loop stopped")
			return err
		})
		started++
	}
	if started == 0 {
		l.Panic().Str("only", *fOnly).Msg("no loops matched -only")
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		l.Fatal().Err(err).Msg("worker loop failed")
	}
}
