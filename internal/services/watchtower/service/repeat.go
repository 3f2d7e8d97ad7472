package service

import (
	"context"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
	"watchtower/internal/services/watchtower/domain"
)

// DetectRepeat counts prior infractions with exactly the same reason.
// When the infraction store fails it falls back to the user's point total,
// which carries no per rule granularity and is labeled as such
func (s *Svc) DetectRepeat(ctx context.Context, id domain.Identity, reason string) domain.RepeatFlag {
	flag := s.detectRepeat(ctx, id, reason)
	repeatSignals.WithLabelValues(string(flag.Kind)).Inc()
	return flag
}

func (s *Svc) detectRepeat(ctx context.Context, id domain.Identity, reason string) domain.RepeatFlag {
	none := domain.RepeatFlag{Kind: domain.RepeatNone}
	if id.SteamID == "" && !id.HasDiscord() {
		return none
	}

	r := s.repo()
	n, err := r.CountInfractions(ctx, id.SteamID, id.DiscordID, reason)
	if err == nil {
		if n > 0 {
			return domain.RepeatFlag{Kind: domain.RepeatSameRule, PriorCount: n}
		}
		return none
	}

	log := logger.C(ctx)
	log.Warn().Err(err).Msg("infraction count failed, falling back to point total")

	var u domain.UserRow
	if id.SteamID != "" {
		u, err = r.UserBySteamID(ctx, id.SteamID)
	} else {
		u, err = r.UserByDiscordID(ctx, id.DiscordID)
	}
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			log.Warn().Err(err).Msg("point total lookup failed")
		}
		return none
	}
	if u.TotalPoints > 0 {
		return domain.RepeatFlag{Kind: domain.RepeatPriorHistory}
	}
	return none
}
