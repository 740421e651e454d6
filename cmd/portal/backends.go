// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/auth/memory"
	authpg "github.com/holomush/portal/internal/auth/postgres"
	authredis "github.com/holomush/portal/internal/auth/redis"
	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/mail"
	"github.com/holomush/portal/internal/store"
	"github.com/holomush/portal/pkg/errutil"
)

// Backends holds the repositories selected by configuration.
type Backends struct {
	Users    auth.UserRepository
	Sessions auth.SessionRepository

	closers []func()
}

// Close releases every connection opened for the backends, in reverse
// order.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// AutoMigrator is the part of the migrator run on startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// migratorFactory is replaced in tests.
var migratorFactory = func(url string) (AutoMigrator, error) {
	return store.NewMigrator(url)
}

func autoMigrate(url string, newMigrator func(string) (AutoMigrator, error), logger *slog.Logger) error {
	m, err := newMigrator(url)
	if err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// openBackends connects the user store and the session store named by
// cfg. The caller must Close the result.
func openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	connectCtx := ctx
	if cfg.Store.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.Store.ConnectTimeout)
		defer cancel()
	}

	switch cfg.Store.Driver {
	case "memory":
		b.Users = memory.NewUserRepository()
		b.Sessions = memory.NewSessionRepository()
		logger.Warn("using in-memory user store; data is lost on exit")
	case "postgres":
		if cfg.Store.AutoMigrate {
			if err := autoMigrate(cfg.Store.URL, migratorFactory, logger); err != nil {
				return nil, err
			}
		}
		pool, err := store.Connect(connectCtx, cfg.Store.URL, store.DefaultRetryPolicy, logger)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		b.closers = append(b.closers, pool.Close)
		b.Users = authpg.NewUserRepository(pool)
		b.Sessions = authpg.NewSessionRepository(pool)
		logger.Info("connected to database")
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "store.driver").Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Sessions.Backend == "redis" {
		client, err := authredis.Connect(connectCtx, cfg.Redis.URL, store.DefaultRetryPolicy, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("error closing redis client", "error", err)
			}
		})
		b.Sessions = authredis.NewSessionRepository(client, authredis.WithPrefix(cfg.Redis.Prefix))
		logger.Info("sessions stored in redis", "prefix", cfg.Redis.Prefix)
	}

	return b, nil
}

// newMailSender returns the sender named by cfg.Driver.
func newMailSender(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error) {
	switch cfg.Driver {
	case "log":
		return mail.NewLogSender(logger), nil
	case "smtp":
		sender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.From,
		})
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "mail.driver").Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// services is the set of domain services wired over one Backends.
type services struct {
	sessions  *auth.SessionStore
	auth      *auth.Service
	directory *auth.Directory
	invites   *auth.InvitationService
	bootstrap *auth.Bootstrap
}

func buildServices(cfg *config.Config, b *Backends, sender mail.Sender, logger *slog.Logger) (*services, error) {
	sessions, err := auth.NewSessionStore(b.Sessions,
		auth.WithSessionTimeout(cfg.Sessions.Timeout),
		auth.WithSweepOnCreate(cfg.Sessions.SweepOnCreate),
		auth.WithSessionLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewArgon2idHasher(auth.WithLegacyPlaintext(cfg.Auth.LegacyPlaintext))
	if cfg.Auth.LegacyPlaintext {
		logger.Warn("plaintext stored passwords are accepted; they are rehashed on next login")
	}

	authSvc, err := auth.NewAuthServiceWithLogger(b.Users, sessions, hasher, logger)
	if err != nil {
		return nil, err
	}
	directory, err := auth.NewDirectory(b.Users)
	if err != nil {
		return nil, err
	}

	outbox, err := mail.NewOutbox(sender, logger)
	if err != nil {
		return nil, err
	}
	invites, err := auth.NewInvitationService(b.Users, hasher, outbox,
		mail.NewInvitationTemplate(cfg.Mail.OrgName, cfg.Mail.SetupURL),
		auth.WithAllowedDomains(cfg.Invite.AllowedDomains...),
		auth.WithCredentialLengths(cfg.Invite.UsernameSuffixLength, cfg.Invite.PasswordLength),
		auth.WithInvitationLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &services{
		sessions:  sessions,
		auth:      authSvc,
		directory: directory,
		invites:   invites,
		bootstrap: auth.NewBootstrap(b.Users, sessions, hasher, logger),
	}, nil
}

// bootstrapAdmin creates the configured administrator if it is missing.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, svc *services, logger *slog.Logger) (string, error) {
	password, err := svc.bootstrap.EnsureAdmin(ctx, auth.AdminConfig{
		Email:    cfg.Auth.AdminEmail,
		Username: cfg.Auth.AdminUsername,
	})
	if err != nil {
		errutil.LogError(logger, "admin bootstrap failed", err)
		return "", err
	}
	return password, nil
}
