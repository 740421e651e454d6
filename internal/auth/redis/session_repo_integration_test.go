// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/auth/redis"
	"github.com/holomush/portal/internal/store"
)

func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestSessionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	url := startRedis(ctx, t)

	client, err := redis.Connect(ctx, url, store.DefaultRetryPolicy, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := redis.NewSessionRepository(client, redis.WithPrefix("it:"))
	now := time.Now().UTC().Truncate(time.Millisecond)

	live, err := auth.NewSession("live", "alice", now, time.Hour)
	require.NoError(t, err)
	stale, err := auth.NewSession("stale", "alice", now.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))
	assert.ErrorIs(t, repo.Create(ctx, live), auth.ErrDuplicate)

	t.Run("expired sessions stay readable until swept", func(t *testing.T) {
		got, err := repo.GetByToken(ctx, "stale")
		require.NoError(t, err)
		assert.True(t, got.IsExpiredAt(now))
	})

	t.Run("sweep removes only expired sessions", func(t *testing.T) {
		n, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = repo.GetByToken(ctx, "stale")
		assert.ErrorIs(t, err, auth.ErrNotFound)

		got, err := repo.GetByToken(ctx, "live")
		require.NoError(t, err)
		assert.Equal(t, live.ExpiresAt, got.ExpiresAt)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteByToken(ctx, "live"))
		assert.ErrorIs(t, repo.DeleteByToken(ctx, "live"), auth.ErrNotFound)
	})

	t.Run("works under the session store", func(t *testing.T) {
		sessions, err := auth.NewSessionStore(repo, auth.WithSessionTimeout(time.Minute))
		require.NoError(t, err)

		s, err := sessions.Create(ctx, "via-store", "bob")
		require.NoError(t, err)
		assert.True(t, sessions.IsValid(ctx, s.Token))
		require.NoError(t, sessions.Delete(ctx, s.Token))
		assert.False(t, sessions.IsValid(ctx, s.Token))
	})
}
