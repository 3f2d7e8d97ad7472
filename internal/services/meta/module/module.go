// Package module wires meta endpoints into the ops API
package module

import (
	"context"
	"net/http"
	"time"

	"watchtower/internal/core/version"
	"watchtower/internal/modkit"
	"watchtower/internal/modkit/httpkit"
	"watchtower/internal/platform/store"

	metahttp "watchtower/internal/services/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	deps   metahttp.Deps
}

// New constructs a meta module that reports readiness of whichever stores deps carries
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	return &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		deps: metahttp.Deps{
			ServiceName: version.Service,
			StartedAt:   time.Now(),
			Checks:      checks(deps),
		},
	}
}

func checks(d modkit.Deps) []metahttp.Check {
	out := []metahttp.Check{{Name: "pg"}, {Name: "redis"}, {Name: "ch"}}
	if p, ok := d.PG.(store.Pinger); ok {
		out[0].Ping = p.Ping
	}
	if d.RDS != nil {
		out[1].Ping = func(ctx context.Context) error { return d.RDS.Ping(ctx).Err() }
	}
	if p, ok := d.CH.(store.Pinger); ok {
		out[2].Ping = p.Ping
	}
	return out
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		if len(m.mws) > 0 {
			rr.Use(m.mws...)
		}
		metahttp.Register(rr, m.deps)
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
