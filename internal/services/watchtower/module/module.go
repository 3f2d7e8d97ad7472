// Package module implements the watchtower service module
package module

import (
	"golang.org/x/time/rate"

	"watchtower/internal/adapters/catbox"
	"watchtower/internal/adapters/scoring"
	"watchtower/internal/modkit"
	"watchtower/internal/modkit/httpkit"
	"watchtower/internal/modkit/repokit"
	"watchtower/internal/platform/lock"
	"watchtower/internal/services/watchtower/domain"
	wthttp "watchtower/internal/services/watchtower/http"
	"watchtower/internal/services/watchtower/repo"
	"watchtower/internal/services/watchtower/service"
)

// Platform are the chat platform ports the caller injects with modkit.WithPorts
type Platform struct {
	History   domain.History
	Directory domain.Directory
	Channels  domain.Channels
	Fetcher   domain.Fetcher

	// Host and Scorer override the configured HTTP clients when set
	Host   domain.ContentHost
	Scorer domain.Scorer
}

// Ports exposed by the watchtower module
type Ports struct {
	Resolver domain.Resolver
	Query    domain.InfractionQuery
}

// Module implements the watchtower service module
type Module struct {
	deps   modkit.Deps
	opts   Options
	prefix string
	ports  Ports
}

// New constructs the watchtower module. Redis backs the destination lock
// when deps carries it, ClickHouse receives the infraction event mirror
func New(deps modkit.Deps, opts Options, mopts ...modkit.Option) *Module {
	if deps.PG == nil {
		panic("watchtower module requires postgres")
	}
	b := modkit.Build(append([]modkit.Option{modkit.WithName("watchtower")}, mopts...)...)
	pp, _ := b.Ports.(Platform)

	if pp.Host == nil {
		pp.Host = catbox.NewClient(catbox.Options{URL: opts.CatboxURL, UserHash: opts.CatboxUserHash})
	}
	if pp.Scorer == nil {
		pp.Scorer = scoring.NewClient(scoring.Options{
			URL:       opts.PointsURL,
			Token:     opts.PointsToken,
			Timeout:   opts.PointsTimeout,
			RetryBase: opts.PointsRetryBase,
		})
	}

	var locker lock.Locker = lock.NewLocal()
	if deps.RDS != nil {
		locker = lock.NewRedis(deps.RDS, opts.LockTTL)
	}

	ports := service.Ports{
		History:   pp.History,
		Directory: pp.Directory,
		Channels:  pp.Channels,
		Fetcher:   pp.Fetcher,
		Host:      pp.Host,
		Scorer:    pp.Scorer,
		Locker:    locker,
	}
	if deps.CH != nil {
		ports.Events = repo.NewCH(deps.CH)
	}

	var limiter *rate.Limiter
	if opts.UploadRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.UploadRPS), 1)
	}

	db := deps.PG
	if opts.StatementTimeout > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(opts.StatementTimeout))
	}

	svc := service.New(db, repo.NewPG(), ports, service.Options{
		ChannelID:       opts.ChannelID,
		AttachmentBatch: opts.AttachmentBatch,
		PasteTimeout:    opts.PasteTimeout,
		ContextMessages: opts.ContextMessages,
		UploadLimiter:   limiter,
	})

	return &Module{
		deps:   deps,
		opts:   opts,
		prefix: b.Prefix,
		ports:  Ports{Resolver: svc, Query: svc},
	}
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "watchtower" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Prefix satisfies modkit.Module
func (m *Module) Prefix() string { return m.prefix }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.prefix == "" {
		wthttp.Register(r, m.ports.Query)
		return
	}
	r.Route(m.prefix, func(rr httpkit.Router) { wthttp.Register(rr, m.ports.Query) })
}
