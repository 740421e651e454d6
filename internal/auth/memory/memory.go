// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process auth repositories for development
// and tests. Nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/auth"
)

// UserRepository implements auth.UserRepository over maps keyed by email
// and username.
type UserRepository struct {
	mu         sync.RWMutex
	byEmail    map[string]*auth.User
	byUsername map[string]string // username -> email
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byEmail:    make(map[string]*auth.User),
		byUsername: make(map[string]string),
	}
}

func clone(u *auth.User) *auth.User {
	c := *u
	return &c
}

// Create stores a copy of user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	email := auth.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return oops.Code("USER_DUPLICATE").With("email", email).Wrap(auth.ErrDuplicate)
	}
	if _, ok := r.byUsername[user.Username]; ok {
		return oops.Code("USER_DUPLICATE").With("username", user.Username).Wrap(auth.ErrDuplicate)
	}

	stored := clone(user)
	stored.Email = email
	r.byEmail[email] = stored
	r.byUsername[user.Username] = email
	return nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email, ok := r.byUsername[username]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	return clone(r.byEmail[email]), nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	email = auth.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return clone(u), nil
}

// List returns copies of every user, oldest first.
func (r *UserRepository) List(_ context.Context) ([]*auth.User, error) {
	r.mu.RLock()
	users := make([]*auth.User, 0, len(r.byEmail))
	for _, u := range r.byEmail {
		users = append(users, clone(u))
	}
	r.mu.RUnlock()

	slices.SortFunc(users, func(a, b *auth.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
	return users, nil
}

// UpdateSetupFields replaces the credentials of the user with email and
// activates it.
func (r *UserRepository) UpdateSetupFields(_ context.Context, email, username, passwordHash string) error {
	email = auth.NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byEmail[email]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if owner, taken := r.byUsername[username]; taken && owner != email {
		return oops.Code("USER_DUPLICATE").With("username", username).Wrap(auth.ErrDuplicate)
	}

	delete(r.byUsername, u.Username)
	u.Username = username
	u.PasswordHash = passwordHash
	u.Status = auth.StatusActive
	r.byUsername[username] = email
	return nil
}

// UpdatePasswordHash rewrites the digest of the user with id.
func (r *UserRepository) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byEmail {
		if u.ID == id {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
}

// DeleteByEmail removes the user with email.
func (r *UserRepository) DeleteByEmail(_ context.Context, email string) error {
	email = auth.NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byEmail[email]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	delete(r.byUsername, u.Username)
	delete(r.byEmail, email)
	return nil
}

// SessionRepository implements auth.SessionRepository over a map keyed
// by token.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]auth.Session
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]auth.Session)}
}

// Create stores a copy of session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.Token]; ok {
		return oops.Code("SESSION_DUPLICATE").Wrap(auth.ErrDuplicate)
	}
	r.sessions[session.Token] = *session
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepository) GetByToken(_ context.Context, token string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &s, nil
}

// DeleteByToken removes a session.
func (r *SessionRepository) DeleteByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[token]; !ok {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(r.sessions, token)
	return nil
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for token, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, token)
			n++
		}
	}
	return n, nil
}

// Len reports how many sessions are stored, expired or not.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
