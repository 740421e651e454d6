// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/portal/pkg/errutil"
)

// Service provides the login and account-setup operations.
type Service struct {
	users    UserRepository
	sessions *SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, sessions *SessionStore, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(users, sessions, hasher, nil)
}

// NewAuthServiceWithLogger creates a new Service that logs best-effort
// failures to logger. A nil logger falls back to slog.Default().
func NewAuthServiceWithLogger(users UserRepository, sessions *SessionStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is verified when a user doesn't exist so that response
// time does not reveal whether the username is registered.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// checkCredentials looks up username and verifies password. Unknown users
// and wrong passwords both yield AUTH_INVALID_CREDENTIALS.
func (s *Service) checkCredentials(ctx context.Context, username, password string) (*User, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	var targetHash string
	var userExists bool
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
		targetHash = dummyPasswordHash
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if userExists {
			// A stored value in no known format cannot match; the row
			// needs an operator, not a retry.
			s.logger.Warn("stored password digest is unreadable",
				"username", username,
				"error", verifyErr)
		}
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
	}

	if !userExists || !valid {
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
	}

	return user, nil
}

// upgradeHash rewrites a legacy digest as argon2id. Failures are logged;
// the caller's operation succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(s.logger, "password hash upgrade failed", err, "username", user.Username)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		errutil.LogError(s.logger, "password hash upgrade failed", err, "username", user.Username)
		return
	}
	user.PasswordHash = newHash
}

// Login authenticates an active user and creates a session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, oops.Code(CodeMissingField).Errorf("username and password are required")
	}

	user, err := s.checkCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if !user.IsActive() {
		return nil, oops.Code(CodeInactiveAccount).
			With("status", string(user.Status)).
			Errorf("account is not active")
	}

	s.upgradeHash(ctx, user, password)

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := s.sessions.Create(ctx, token, user.Username)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.logger.Info("user logged in", "username", user.Username)
	return session, nil
}

// VerifyTempLogin checks the temporary credentials of a pending user and
// returns the user's email for use with CompleteSetup.
func (s *Service) VerifyTempLogin(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", oops.Code(CodeMissingField).Errorf("username and password are required")
	}

	user, err := s.checkCredentials(ctx, username, password)
	if err != nil {
		return "", err
	}

	if !user.IsPending() {
		return "", oops.Code(CodeAlreadySetUp).
			With("username", username).
			Errorf("account setup already completed")
	}

	return user.Email, nil
}

// CompleteSetup replaces the temporary credentials of the pending user
// identified by email and activates the account.
func (s *Service) CompleteSetup(ctx context.Context, email, newUsername, newPassword string) error {
	email = NormalizeEmail(email)
	if email == "" || newUsername == "" || newPassword == "" {
		return oops.Code(CodeMissingField).Errorf("all fields are required")
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	existing, err := s.users.GetByUsername(ctx, newUsername)
	switch {
	case err == nil:
		if existing.Email != email {
			return oops.Code(CodeUsernameTaken).
				With("username", newUsername).
				Errorf("username already taken")
		}
	case !errors.Is(err, ErrNotFound):
		return oops.Code("AUTH_SETUP_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).With("email", email).Errorf("user not found")
		}
		return oops.Code("AUTH_SETUP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if !user.IsPending() {
		return oops.Code(CodeAlreadySetUp).
			With("email", email).
			Errorf("account setup already completed")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_SETUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdateSetupFields(ctx, email, newUsername, hash); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return oops.Code(CodeUserNotFound).With("email", email).Errorf("user not found")
		case errors.Is(err, ErrDuplicate):
			return oops.Code(CodeUsernameTaken).
				With("username", newUsername).
				Errorf("username already taken")
		}
		return oops.Code("AUTH_SETUP_FAILED").
			With("operation", "update setup fields").
			Wrap(err)
	}

	s.logger.Info("account setup completed", "email", email, "username", newUsername)
	return nil
}

// VerifyToken returns the username bound to a live session token.
// Expired sessions are deleted.
func (s *Service) VerifyToken(ctx context.Context, token string) (string, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return "", err
	}
	return session.Username, nil
}

// Authorize gates privileged operations on a live session. Every failure
// is reported as AUTH_UNAUTHORIZED.
func (s *Service) Authorize(ctx context.Context, token string) error {
	if !s.sessions.IsValid(ctx, token) {
		return oops.Code(CodeUnauthorized).Errorf("unauthorized")
	}
	return nil
}
