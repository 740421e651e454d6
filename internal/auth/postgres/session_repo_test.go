// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/pkg/errutil"
)

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	session := &auth.Session{Token: "tok", Username: "alice", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock := newMockPool(t)
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("tok", "alice", now, now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("tok", "alice", now, now.Add(time.Hour)).
		WillReturnError(errors.New("disk full"))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.Create(ctx, session))
	errutil.AssertErrorCode(t, repo.Create(ctx, session), "SESSION_CREATE_FAILED")
}

func TestSessionRepository_GetByToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT token, username, created_at, expires_at\s+FROM sessions\s+WHERE token = \$1`).
			WithArgs("tok").
			WillReturnRows(pgxmock.NewRows([]string{"token", "username", "created_at", "expires_at"}).
				AddRow("tok", "alice", now, now.Add(time.Hour)))

		s, err := NewSessionRepository(mock).GetByToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "alice", s.Username)
		assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, err := NewSessionRepository(mock).GetByToken(ctx, "nope")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("tok").WillReturnError(errors.New("timeout"))

		_, err := NewSessionRepository(mock).GetByToken(ctx, "tok")
		errutil.AssertErrorCode(t, err, "SESSION_GET_FAILED")
	})
}

func TestSessionRepository_DeleteByToken(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).WithArgs("tok").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).WithArgs("tok").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.DeleteByToken(ctx, "tok"))
	assert.ErrorIs(t, repo.DeleteByToken(ctx, "tok"), auth.ErrNotFound)
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).WithArgs(now).
		WillReturnError(errors.New("locked"))

	repo := NewSessionRepository(mock)
	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = repo.DeleteExpired(ctx, now)
	errutil.AssertErrorCode(t, err, "SESSION_SWEEP_FAILED")
}
