// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, session.Token, session.Username, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return oops.Code("SESSION_DUPLICATE").Wrap(auth.ErrDuplicate)
		}
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("username", session.Username).
			Wrap(err)
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	var s auth.Session
	err := r.pool.QueryRow(ctx, `
		SELECT token, username, created_at, expires_at
		FROM sessions
		WHERE token = $1
	`, token).Scan(&s.Token, &s.Username, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return &s, nil
}

// DeleteByToken removes a session.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes every session that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}
