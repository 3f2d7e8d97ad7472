package store

import (
	"context"
	"fmt"
	"time"

	chx "watchtower/internal/platform/store/ch"
	"watchtower/internal/platform/store/pg"
	"watchtower/internal/platform/retry"

	"github.com/redis/go-redis/v9"
)

var newRedis = func(o *redis.Options) redis.UniversalClient { return redis.NewClient(o) }

// openPG opens the pool, waits until it answers a ping, then publishes the sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
		AppName:  cfg.AppName,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectAttempts
	if attempts <= 0 {
		attempts = 20
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}

	// ping the pool directly so boot probes stay out of the sql trace
	n, err := retry.Do(ctx, retry.Policy{
		Attempts: attempts,
		Delay:    retry.Exponential(150*time.Millisecond, 2*time.Second),
		OnRetry: func(attempt int, wait time.Duration, err error) {
			s.Log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("postgres not ready")
		},
	}, func(ctx context.Context, _ int) error {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return p.Pool.Ping(toCtx)
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", n, err)
	}
	return newPGAdapter(p), nil
}

func openRedis(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	rc := newRedis(&redis.Options{
		Addr:       cfg.RDS.Addr,
		Password:   cfg.RDS.Password,
		DB:         cfg.RDS.DB,
		ClientName: cfg.AppName,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RDS.Addr, err)
	}
	return rc, nil
}

func openCH(ctx context.Context, cfg Config) (Clickhouse, error) {
	return chx.Open(ctx, chx.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
	})
}
