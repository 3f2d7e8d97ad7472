package service

import (
	"context"

	"watchtower/internal/modkit/repokit"
	"watchtower/internal/platform/logger"
	"watchtower/internal/services/watchtower/domain"
)

// RecordInfraction appends one infraction row and mirrors it to the event
// sink when one is configured. A pg failure is returned and the record is
// listed as not recorded in the summary; a mirror failure is only logged
func (s *Svc) RecordInfraction(ctx context.Context, inv domain.Invocation, rec domain.OffenderRecord, id domain.Identity, flag domain.RepeatFlag) error {
	log := logger.C(ctx)
	now := s.opts.Clock.Now()
	row := domain.InfractionRow{
		SteamID:   id.SteamID,
		DiscordID: id.DiscordID,
		Reason:    rec.Reason(),
		Timestamp: now.Unix(),
	}

	err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		var err error
		row.ID, err = s.binder.Bind(q).InsertInfraction(ctx, row)
		return err
	})
	if err != nil {
		persisted.WithLabelValues("pg", "error").Inc()
		log.Error().Err(err).Str("reason", row.Reason).Msg("infraction insert failed")
		return err
	}
	persisted.WithLabelValues("pg", "ok").Inc()

	if s.ports.Events != nil {
		ev := domain.InfractionEvent{
			InvocationID: inv.ID,
			TicketID:     inv.TicketID,
			SteamID:      id.SteamID,
			DiscordID:    id.DiscordID,
			Reason:       row.Reason,
			Points:       rec.Points,
			Repeat:       flag.Kind,
			Issuer:       inv.ModeratorName,
			At:           now,
		}
		if err := s.ports.Events.Append(ctx, ev); err != nil {
			persisted.WithLabelValues("clickhouse", "error").Inc()
			log.Warn().Err(err).Msg("infraction event mirror failed")
		} else {
			persisted.WithLabelValues("clickhouse", "ok").Inc()
		}
	}
	return nil
}

// ListInfractions implements domain.InfractionQuery
func (s *Svc) ListInfractions(ctx context.Context, steamID string, discordID int64, limit int) ([]domain.InfractionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 200)
	return s.repo().ListInfractions(ctx, steamID, discordID, limit)
}
