// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// AdminConfig describes the default administrator account.
type AdminConfig struct {
	Email    string
	Username string
	FullName string
}

// Bootstrap seeds the directory with a default administrator.
type Bootstrap struct {
	users    UserRepository
	sessions *SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewBootstrap creates a Bootstrap. sessions may be nil, in which case no
// sweep is performed.
func NewBootstrap(users UserRepository, sessions *SessionStore, hasher PasswordHasher, logger *slog.Logger) *Bootstrap {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrap{users: users, sessions: sessions, hasher: hasher, logger: logger}
}

// EnsureAdmin creates the administrator if no user has its email and
// returns the generated password; it returns "" when the admin already
// exists. Expired sessions are swept afterwards.
func (b *Bootstrap) EnsureAdmin(ctx context.Context, cfg AdminConfig) (string, error) {
	email := NormalizeEmail(cfg.Email)
	if email == "" {
		return "", oops.Code("BOOTSTRAP_CONFIG_INVALID").Errorf("admin email is required")
	}
	if cfg.Username == "" {
		cfg.Username = "admin"
	}
	if cfg.FullName == "" {
		cfg.FullName = "Admin User"
	}

	password, err := b.ensureAdmin(ctx, email, cfg)
	if err != nil {
		return "", err
	}

	if b.sessions != nil {
		if _, err := b.sessions.SweepExpired(ctx); err != nil {
			return password, err
		}
	}
	return password, nil
}

func (b *Bootstrap) ensureAdmin(ctx context.Context, email string, cfg AdminConfig) (string, error) {
	_, err := b.users.GetByEmail(ctx, email)
	if err == nil {
		b.logger.Debug("admin user already present", "email", email)
		return "", nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", oops.Code("BOOTSTRAP_FAILED").
			With("operation", "get admin by email").
			Wrap(err)
	}

	password, err := GenerateTempPassword(MinTempPasswordLength)
	if err != nil {
		return "", err
	}
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return "", oops.Code("BOOTSTRAP_FAILED").
			With("operation", "hash admin password").
			Wrap(err)
	}

	admin, err := NewUser(cfg.FullName, email, cfg.Username, hash, RoleAdmin)
	if err != nil {
		return "", err
	}
	admin.Status = StatusActive
	admin.Notes = "Default admin user"

	if err := b.users.Create(ctx, admin); err != nil {
		return "", oops.Code("BOOTSTRAP_FAILED").
			With("operation", "create admin").
			With("email", email).
			Wrap(err)
	}

	b.logger.Warn("default admin user created; change this password",
		"email", email,
		"username", admin.Username,
		"password", password)
	return password, nil
}
