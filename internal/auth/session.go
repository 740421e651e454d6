// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultSessionTimeout is the session lifetime when none is configured.
const DefaultSessionTimeout = 24 * time.Hour

// Session is a bearer session issued by a successful login.
type Session struct {
	Token     string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session starting at now.
func NewSession(token, username string, now time.Time, timeout time.Duration) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("session token cannot be empty")
	}
	if username == "" {
		return nil, oops.Code("SESSION_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if timeout <= 0 {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("timeout", timeout.String()).
			Errorf("session timeout must be positive")
	}

	return &Session{
		Token:     token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(timeout),
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
// A session is no longer valid from the instant it reaches ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// GenerateSessionToken returns a random 128-bit token as a canonical UUID string.
func GenerateSessionToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "uuid.NewRandom").
			Wrap(err)
	}
	return id.String(), nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a session by token.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// DeleteByToken removes a session. Returns ErrNotFound if absent.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired removes all sessions that expired before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
