package repo

import (
	"context"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/store"
	"watchtower/internal/services/watchtower/domain"
)

// EventsTable receives one row per recorded infraction
const EventsTable = "infraction_events"

const eventsDDL = `CREATE TABLE IF NOT EXISTS ` + EventsTable + ` (
	at            DateTime64(3, 'UTC'),
	invocation_id String,
	ticket_id     String,
	steamid       String,
	discordid     Int64,
	reason        String,
	points        Int32,
	repeat        LowCardinality(String),
	issuer        String
) ENGINE = MergeTree
ORDER BY (at, invocation_id)`

// CH mirrors infractions into clickhouse for reporting
type CH struct{ ch store.Clickhouse }

// NewCH wraps a clickhouse seam as an event sink
func NewCH(ch store.Clickhouse) *CH { return &CH{ch: ch} }

// EnsureTable creates the events table when missing
func (c *CH) EnsureTable(ctx context.Context) error {
	if err := c.ch.Exec(ctx, eventsDDL); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "ensure "+EventsTable)
	}
	return nil
}

// Append implements domain.EventSink
func (c *CH) Append(ctx context.Context, ev domain.InfractionEvent) error {
	row := []any{
		ev.At.UTC(),
		ev.InvocationID,
		ev.TicketID,
		ev.SteamID,
		ev.DiscordID,
		ev.Reason,
		int32(ev.Points),
		string(ev.Repeat),
		ev.Issuer,
	}
	if err := c.ch.Insert(ctx, EventsTable, [][]any{row}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "append "+EventsTable)
	}
	return nil
}
