// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/portal/pkg/errutil"
)

// SessionStore applies the session lifetime rules on top of a
// SessionRepository: creation with a configured timeout, lazy expiry on
// access, and sweeping.
type SessionStore struct {
	repo          SessionRepository
	timeout       time.Duration
	sweepOnCreate bool
	now           func() time.Time
	logger        *slog.Logger
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithSessionTimeout sets the session lifetime. Non-positive values keep
// DefaultSessionTimeout.
func WithSessionTimeout(d time.Duration) SessionStoreOption {
	return func(s *SessionStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSweepOnCreate controls whether Create sweeps expired sessions
// after inserting.
func WithSweepOnCreate(enabled bool) SessionStoreOption {
	return func(s *SessionStore) {
		s.sweepOnCreate = enabled
	}
}

// WithSessionLogger sets the logger used for best-effort failures.
func WithSessionLogger(logger *slog.Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessionStore creates a SessionStore over repo.
func NewSessionStore(repo SessionRepository, opts ...SessionStoreOption) (*SessionStore, error) {
	if repo == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("session repository is required")
	}
	s := &SessionStore{
		repo:          repo,
		timeout:       DefaultSessionTimeout,
		sweepOnCreate: true,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Timeout returns the configured session lifetime.
func (s *SessionStore) Timeout() time.Duration {
	return s.timeout
}

// Create persists a session for username under token.
func (s *SessionStore) Create(ctx context.Context, token, username string) (*Session, error) {
	session, err := NewSession(token, username, s.now().UTC(), s.timeout)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("username", username).
			Wrap(err)
	}

	if s.sweepOnCreate {
		if _, err := s.SweepExpired(ctx); err != nil {
			errutil.LogError(s.logger, "sweep after session create failed", err)
		}
	}

	return session, nil
}

// Find returns the session for token, expired or not.
func (s *SessionStore) Find(ctx context.Context, token string) (*Session, error) {
	session, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_NOT_FOUND").Wrap(err)
		}
		return nil, oops.Code("SESSION_FIND_FAILED").Wrap(err)
	}
	return session, nil
}

// Delete removes the session for token. Absent tokens are not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	err := s.repo.DeleteByToken(ctx, token)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

// SweepExpired removes every session whose expiry has passed.
func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	if n > 0 {
		s.logger.Debug("swept expired sessions", "count", n)
	}
	return n, nil
}

// Resolve returns the live session for token. An expired session is
// deleted and reported as SESSION_EXPIRED; an unknown token as
// SESSION_INVALID.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code(CodeMissingField).With("field", "token").Errorf("token is required")
	}

	session, err := s.Find(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeSessionInvalid).Errorf("invalid token")
		}
		return nil, err
	}

	if session.IsExpiredAt(s.now()) {
		if delErr := s.Delete(ctx, token); delErr != nil {
			errutil.LogError(s.logger, "delete expired session failed", delErr)
		}
		return nil, oops.Code(CodeSessionExpired).
			With("expired_at", session.ExpiresAt).
			Errorf("session expired")
	}

	return session, nil
}

// IsValid reports whether token refers to a live session. Expired
// sessions are deleted as a side effect. Store failures count as invalid.
func (s *SessionStore) IsValid(ctx context.Context, token string) bool {
	_, err := s.Resolve(ctx, token)
	if err != nil {
		if code := errutil.Code(err); code != CodeSessionInvalid && code != CodeSessionExpired && code != CodeMissingField {
			errutil.LogError(s.logger, "session validation failed", err)
		}
		return false
	}
	return true
}
