// Package http provides the read only ops transport for recorded infractions
package http

import (
	stdhttp "net/http"
	"strconv"
	"strings"

	"watchtower/internal/modkit/httpkit"
	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/validate"
	"watchtower/internal/services/watchtower/domain"
)

// DefaultLimit and MaxLimit bound the infractions page size
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Register mounts watchtower endpoints on the given router
func Register(r httpkit.Router, q domain.InfractionQuery) {
	h := &handlers{q: q}
	httpkit.Get(r, "/infractions", h.infractions)
}

type handlers struct{ q domain.InfractionQuery }

// InfractionsQuery is the query string of GET /watchtower/infractions
type InfractionsQuery struct {
	SteamID   string `json:"steamid"   validate:"omitempty,steamid64"`
	DiscordID string `json:"discordid" validate:"omitempty,snowflake"`
	Limit     int    `json:"limit"     validate:"min=0,max=200"`
}

// InfractionsResp lists infractions newest first
type InfractionsResp struct {
	Items []domain.InfractionRow `json:"items"`
	Count int                    `json:"count"`
}

// GET /watchtower/infractions?steamid=&discordid=&limit=
func (h *handlers) infractions(r *stdhttp.Request) (any, error) {
	in, err := bindInfractions(r)
	if err != nil {
		return nil, err
	}
	var discord int64
	if in.DiscordID != "" {
		discord, _ = strconv.ParseInt(in.DiscordID, 10, 64)
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	rows, err := h.q.ListInfractions(r.Context(), in.SteamID, discord, limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.InfractionRow{}
	}
	return InfractionsResp{Items: rows, Count: len(rows)}, nil
}

func bindInfractions(r *stdhttp.Request) (InfractionsQuery, error) {
	v := r.URL.Query()
	in := InfractionsQuery{
		SteamID:   strings.TrimSpace(v.Get("steamid")),
		DiscordID: strings.TrimSpace(v.Get("discordid")),
	}
	if s := strings.TrimSpace(v.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return in, perr.WithField(perr.InvalidArgf("limit must be an integer"), "limit")
		}
		in.Limit = n
	}
	if err := validate.Struct(in); err != nil {
		return in, err
	}
	if in.SteamID == "" && in.DiscordID == "" {
		return in, perr.InvalidArgf("steamid or discordid is required")
	}
	if _, err := strconv.ParseInt(in.DiscordID, 10, 64); in.DiscordID != "" && err != nil {
		return in, perr.WithField(perr.InvalidArgf("discordid out of range"), "discordid")
	}
	return in, nil
}
