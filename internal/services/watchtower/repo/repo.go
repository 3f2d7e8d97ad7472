// Package repo provides the watchtower repository implementation
package repo

import (
	"context"

	"watchtower/internal/modkit/repokit"
	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/store"
	pstrings "watchtower/internal/platform/strings"
	"watchtower/internal/services/watchtower/domain"
)

// Repo is the watchtower persistence surface used by the service layer
type Repo interface {
	UserByDiscordID(ctx context.Context, discordID int64) (domain.UserRow, error)
	UserBySteamID(ctx context.Context, steamID string) (domain.UserRow, error)

	// CountInfractions counts rows with the exact reason, keyed on steamID when
	// set and on discordID otherwise
	CountInfractions(ctx context.Context, steamID string, discordID int64, reason string) (int, error)
	InsertInfraction(ctx context.Context, row domain.InfractionRow) (int64, error)
	ListInfractions(ctx context.Context, steamID string, discordID int64, limit int) ([]domain.InfractionRow, error)
}

type (
	// PG is a Postgres implementation of the watchtower repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const userCols = `discordid, steamid, ign, COALESCE(total_points, 0)`

func scanUser(r store.Row) (domain.UserRow, error) {
	var (
		u       domain.UserRow
		discord *int64
		steam   *string
		ign     *string
	)
	if err := r.Scan(&discord, &steam, &ign, &u.TotalPoints); err != nil {
		return u, err
	}
	if discord != nil {
		u.DiscordID = *discord
	}
	if steam != nil {
		u.SteamID = *steam
	}
	if ign != nil {
		u.IGN = *ign
	}
	return u, nil
}

func scanInfraction(r store.Row) (domain.InfractionRow, error) {
	var (
		x       domain.InfractionRow
		discord *int64
		steam   *string
	)
	if err := r.Scan(&x.ID, &steam, &discord, &x.Reason, &x.Timestamp); err != nil {
		return x, err
	}
	if discord != nil {
		x.DiscordID = *discord
	}
	if steam != nil {
		x.SteamID = *steam
	}
	return x, nil
}

// UserByDiscordID returns the linked account for a discord id
func (r *queries) UserByDiscordID(ctx context.Context, discordID int64) (domain.UserRow, error) {
	u, err := store.One(ctx, r.q, scanUser,
		`SELECT `+userCols+` FROM users WHERE discordid = $1`, discordID)
	return u, wrap(err, "user by discordid")
}

// UserBySteamID returns the linked account for a steam id
func (r *queries) UserBySteamID(ctx context.Context, steamID string) (domain.UserRow, error) {
	u, err := store.One(ctx, r.q, scanUser,
		`SELECT `+userCols+` FROM users WHERE steamid = $1`, steamID)
	return u, wrap(err, "user by steamid")
}

// CountInfractions implements Repo
func (r *queries) CountInfractions(ctx context.Context, steamID string, discordID int64, reason string) (int, error) {
	var (
		n   int
		err error
	)
	switch {
	case steamID != "":
		n, err = store.Scalar[int](ctx, r.q,
			`SELECT COUNT(*) FROM infractions WHERE steamid = $1 AND reason = $2`, steamID, reason)
	case discordID != 0:
		n, err = store.Scalar[int](ctx, r.q,
			`SELECT COUNT(*) FROM infractions WHERE discordid = $1 AND reason = $2`, discordID, reason)
	default:
		return 0, perr.InvalidArgf("count infractions: no identifier")
	}
	return n, wrap(err, "count infractions")
}

// InsertInfraction appends one row and returns its id
func (r *queries) InsertInfraction(ctx context.Context, row domain.InfractionRow) (int64, error) {
	var discord any
	if row.DiscordID != 0 {
		discord = row.DiscordID
	}
	id, err := store.Scalar[int64](ctx, r.q, `
		INSERT INTO infractions (steamid, discordid, reason, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		pstrings.SQLNull(row.SteamID), discord, row.Reason, row.Timestamp)
	return id, wrap(err, "insert infraction")
}

// ListInfractions returns newest first rows for an identity
func (r *queries) ListInfractions(ctx context.Context, steamID string, discordID int64, limit int) ([]domain.InfractionRow, error) {
	const cols = `id, steamid, discordid, reason, timestamp`
	var (
		xs  []domain.InfractionRow
		err error
	)
	switch {
	case steamID != "" && discordID != 0:
		xs, err = store.Many(ctx, r.q, scanInfraction,
			`SELECT `+cols+` FROM infractions WHERE steamid = $1 OR discordid = $2 ORDER BY timestamp DESC, id DESC LIMIT $3`,
			steamID, discordID, limit)
	case steamID != "":
		xs, err = store.Many(ctx, r.q, scanInfraction,
			`SELECT `+cols+` FROM infractions WHERE steamid = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
			steamID, limit)
	case discordID != 0:
		xs, err = store.Many(ctx, r.q, scanInfraction,
			`SELECT `+cols+` FROM infractions WHERE discordid = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
			discordID, limit)
	default:
		return nil, perr.InvalidArgf("list infractions: steamid or discordid is required")
	}
	return xs, wrap(err, "list infractions")
}

// wrap maps driver errors onto coded errors, leaving coded ones alone
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.FromPostgres(err, msg)
}
