// Package modkit provides module wiring and core deps
package modkit

import (
	"watchtower/internal/modkit/repokit"
	"watchtower/internal/platform/config"
	"watchtower/internal/platform/logger"
	"watchtower/internal/platform/store"

	"github.com/redis/go-redis/v9"
)

// Deps holds core dependencies passed to modules
// every store is optional; modules nil check what they use
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	RDS redis.UniversalClient
	CH  store.Clickhouse
}

// FromStore copies the opened backends of st into Deps
func FromStore(log logger.Logger, cfg config.Conf, st *store.Store) Deps {
	d := Deps{Log: log, Cfg: cfg}
	if st == nil {
		return d
	}
	d.PG, d.RDS, d.CH = st.PG, st.RDS, st.CH
	return d
}
