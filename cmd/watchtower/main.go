// Command watchtower runs the discord resolve bot and its ops HTTP surface
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"watchtower/internal/adapters/discord"
	"watchtower/internal/modkit"
	"watchtower/internal/modkit/httpkit"
	"watchtower/internal/modkit/module"
	"watchtower/internal/platform/config"
	"watchtower/internal/platform/logger"
	phttp "watchtower/internal/platform/net/http"
	"watchtower/internal/platform/store"
	"watchtower/internal/services/watchtower/service"

	metamod "watchtower/internal/services/meta/module"
	wtmod "watchtower/internal/services/watchtower/module"
	wtrepo "watchtower/internal/services/watchtower/repo"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	logger.Init(logger.FromEnv())
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	wtCfg := root.Prefix("WATCHTOWER_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	rdsCfg := root.Prefix("SERVICE_REDIS_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	opts := wtmod.FromConfig(root)
	if err := opts.Validate(); err != nil {
		l.Panic().Err(err).Msg("invalid watchtower config")
	}

	rdsAddr := rdsCfg.MayString("ADDR", "")
	chURL := chCfg.MayString("DBURL", "")
	st, err := store.Open(ctx,
		store.Config{
			AppName: "watchtower",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			RDS: store.RedisConfig{
				Enabled:  rdsAddr != "",
				Addr:     rdsAddr,
				Password: rdsCfg.MayString("PASSWORD", ""),
				DB:       rdsCfg.MayInt("DB", 0),
			},
			CH: store.CHConfig{
				Enabled:    chURL != "",
				URL:        chURL,
				ClientName: "watchtower",
				ClientTag:  "bot",
			},
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

	if err := wtrepo.EnsureSchema(ctx, st.PG); err != nil {
		l.Panic().Err(err).Msg("ensure schema failed")
	}
	if st.CH != nil {
		if err := wtrepo.NewCH(st.CH).EnsureTable(ctx); err != nil {
			l.Panic().Err(err).Msg("ensure clickhouse table failed")
		}
	}

	sess, err := discord.NewSession(wtCfg.MustString("DISCORD_TOKEN"))
	if err != nil {
		l.Panic().Err(err).Msg("discord session failed")
	}
	platform := discord.NewPlatform(sess)

	deps := modkit.FromStore(*l, root, st)
	wt := wtmod.New(deps, opts, modkit.WithPorts(wtmod.Platform{
		History:   platform,
		Directory: platform,
		Channels:  platform,
		Fetcher:   discord.NewFetcher(discord.FetchOptions{MaxBytes: service.MaxHostBytes}),
	}))
	resolver := module.MustPortsOf[wtmod.Ports](wt).Resolver
	bot := discord.NewBot(sess, resolver, wtCfg.MayString("DISCORD_GUILD_ID", ""))

	// ops server (CORE_OPS_PORT)
	srv := phttp.NewServer(root.Prefix("CORE_"))
	mods := []module.Module{metamod.New(deps), wt}
	httpkit.MountAPIV1(srv.Router(), httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
	srv.Router().Handle("/metrics", promhttp.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return bot.Run(gctx) })

	l.Info().Str("channel_id", opts.ChannelID).Msg("watchtower started")
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("watchtower stopped with error")
		return
	}
	l.Info().Msg("watchtower stopped")
}
