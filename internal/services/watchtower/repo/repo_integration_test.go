//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"watchtower/internal/modkit/repokit"
	"watchtower/internal/platform/store"
	"watchtower/internal/services/watchtower/domain"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "watchtower",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	st, err := store.Open(ctx, store.Config{
		AppName: "watchtower-test",
		PG: store.PGConfig{
			Enabled: true,
			URL:     fmt.Sprintf("postgres://postgres:postgres@%s:%s/watchtower?sslmode=disable", host, port.Port()),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func TestRepo_Integration(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, EnsureSchema(ctx, st.PG))
	require.NoError(t, EnsureSchema(ctx, st.PG), "schema must be idempotent")

	_, err := st.PG.Exec(ctx,
		`INSERT INTO users (discordid, steamid, ign, total_points) VALUES ($1, $2, $3, $4)`,
		int64(123456789012345678), "76561198000000000", "Griefer", 5)
	require.NoError(t, err)

	r := NewPG().Bind(st.PG)

	u, err := r.UserBySteamID(ctx, "76561198000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789012345678), u.DiscordID)
	assert.Equal(t, "Griefer", u.IGN)
	assert.Equal(t, 5, u.TotalPoints)

	u, err = r.UserByDiscordID(ctx, 123456789012345678)
	require.NoError(t, err)
	assert.Equal(t, "76561198000000000", u.SteamID)

	err = repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		tx := NewPG().Bind(q)
		for i, reason := range []string{"Griefing", "Griefing", "griefing"} {
			if _, err := tx.InsertInfraction(ctx, domain.InfractionRow{
				SteamID: "76561198000000000", Reason: reason, Timestamp: int64(1000 + i),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	n, err := r.CountInfractions(ctx, "76561198000000000", 0, "Griefing")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "reason matching is exact")

	xs, err := r.ListInfractions(ctx, "76561198000000000", 0, 2)
	require.NoError(t, err)
	require.Len(t, xs, 2)
	assert.Equal(t, "griefing", xs[0].Reason)
	assert.Zero(t, xs[0].DiscordID)
}
