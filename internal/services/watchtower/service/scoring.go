package service

import (
	"context"

	"watchtower/internal/platform/logger"
	"watchtower/internal/services/watchtower/domain"
)

// ApplyPoints sends the penalty to the scoring service; zero points or an
// unknown steam id skip the call
func (s *Svc) ApplyPoints(ctx context.Context, inv domain.Invocation, rec domain.OffenderRecord, id domain.Identity) domain.ScoreResult {
	var res domain.ScoreResult
	switch {
	case rec.Points <= 0:
		res = domain.ScoreResult{Status: domain.ScoreSkipped, Reason: "no points"}
	case id.SteamID == "":
		res = domain.ScoreResult{Status: domain.ScoreSkipped, Reason: "no steamid"}
	default:
		notes := rec.PublicNotes
		if inv.TicketID != "" {
			if notes != "" {
				notes += " | "
			}
			notes += "Ticket " + inv.TicketID
		}
		res = s.ports.Scorer.Apply(ctx, domain.ScoreRequest{
			SteamID: id.SteamID,
			Points:  rec.Points,
			Reason:  rec.Reason(),
			Notes:   notes,
			Issuer:  inv.ModeratorName,
		})
	}

	scoring.WithLabelValues(string(res.Status)).Inc()
	if res.Status == domain.ScoreFailed {
		logger.C(ctx).Warn().Err(res.Err).
			Int("status_code", res.StatusCode).
			Int("attempts", res.Attempts).
			Str("steamid", id.SteamID).
			Msg("points application failed")
	}
	return res
}
