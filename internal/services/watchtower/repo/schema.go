package repo

import (
	"context"

	"watchtower/internal/modkit/repokit"
	perr "watchtower/internal/platform/errors"
)

// schema is idempotent and safe to run on every start
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		discordid    BIGINT UNIQUE,
		steamid      TEXT UNIQUE,
		ign          TEXT,
		total_points INT DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS infractions (
		id        BIGSERIAL PRIMARY KEY,
		steamid   TEXT,
		discordid BIGINT,
		reason    TEXT NOT NULL,
		timestamp BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS infractions_steam_reason_idx ON infractions (steamid, reason)`,
	`CREATE INDEX IF NOT EXISTS infractions_discord_reason_idx ON infractions (discordid, reason)`,
}

// EnsureSchema creates the users and infractions tables when missing
func EnsureSchema(ctx context.Context, db repokit.TxRunner) error {
	return db.Tx(ctx, func(q repokit.Queryer) error {
		for _, stmt := range schema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return perr.FromPostgres(err, "ensure schema")
			}
		}
		return nil
	})
}
