package service

import (
	"context"
	"strconv"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
	"watchtower/internal/services/watchtower/domain"
)

// minSteamDigits separates steam ids from discord ids for unknown tokens
const minSteamDigits = 17

// ResolveIdentity maps a record onto an identity; misses keep the raw identifier
func (s *Svc) ResolveIdentity(ctx context.Context, rec domain.OffenderRecord) domain.Identity {
	log := logger.C(ctx)
	raw := rec.IdentifierRaw

	bySteam := rec.IdentifierKind == domain.KindSteamID64 ||
		(rec.IdentifierKind == domain.KindUnknown && len(raw) >= minSteamDigits)

	var id domain.Identity
	if bySteam {
		id.SteamID = raw
		u, err := s.repo().UserBySteamID(ctx, raw)
		switch {
		case err == nil:
			id.DiscordID = u.DiscordID
			id.IGN = u.IGN
		case !perr.IsCode(err, perr.ErrorCodeNotFound):
			log.Warn().Err(err).Str("steamid", raw).Msg("identity lookup by steamid failed")
		}
	} else {
		did, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || did <= 0 {
			log.Warn().Str("identifier", raw).Msg("identifier is not a discord id")
			return id
		}
		id.DiscordID = did
		u, err := s.repo().UserByDiscordID(ctx, did)
		switch {
		case err == nil:
			id.SteamID = u.SteamID
			id.IGN = u.IGN
		case !perr.IsCode(err, perr.ErrorCodeNotFound):
			log.Warn().Err(err).Int64("discordid", did).Msg("identity lookup by discordid failed")
		}
	}

	if id.HasDiscord() {
		name, err := s.ports.Directory.UserName(ctx, id.DiscordID)
		if err != nil {
			log.Debug().Err(err).Int64("discordid", id.DiscordID).Msg("discord user lookup failed")
		} else {
			id.DiscordName = name
		}
	}
	return id
}
