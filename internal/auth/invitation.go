// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/portal/pkg/errutil"
)

// Mailer delivers a single plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// InviteNotice carries what an invitation email must tell the invitee.
type InviteNotice struct {
	FullName string
	Email    string
	Username string
	Password string
}

// InviteComposer renders the subject and body of an invitation email.
type InviteComposer interface {
	ComposeInvite(notice InviteNotice) (subject, body string, err error)
}

// Invitation is an admin request to add a user.
type Invitation struct {
	FullName   string
	Email      string
	Role       string
	Department string
	Notes      string
}

// InvitationService creates pending users and emails them temporary
// credentials.
type InvitationService struct {
	users       UserRepository
	hasher      PasswordHasher
	mailer      Mailer
	composer    InviteComposer
	allowed     []glob.Glob
	suffixLen   int
	passwordLen int
	logger      *slog.Logger
}

// InvitationOption configures an InvitationService.
type InvitationOption func(*InvitationService) error

// WithAllowedDomains restricts invitations to emails whose domain matches
// one of the glob patterns (for example "example.com" or "*.example.com").
// No patterns means any domain.
func WithAllowedDomains(patterns ...string) InvitationOption {
	return func(s *InvitationService) error {
		for _, p := range patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			g, err := glob.Compile(p, '.')
			if err != nil {
				return oops.Code("INVITE_CONFIG_INVALID").With("pattern", p).Wrap(err)
			}
			s.allowed = append(s.allowed, g)
		}
		return nil
	}
}

// WithCredentialLengths sets the temporary username suffix and password
// lengths. Values below the package minimums are raised to them.
func WithCredentialLengths(suffixLen, passwordLen int) InvitationOption {
	return func(s *InvitationService) error {
		s.suffixLen = max(suffixLen, MinUsernameSuffixLen)
		s.passwordLen = max(passwordLen, MinTempPasswordLength)
		return nil
	}
}

// WithInvitationLogger sets the service logger.
func WithInvitationLogger(logger *slog.Logger) InvitationOption {
	return func(s *InvitationService) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewInvitationService creates an InvitationService.
func NewInvitationService(users UserRepository, hasher PasswordHasher, mailer Mailer, composer InviteComposer, opts ...InvitationOption) (*InvitationService, error) {
	switch {
	case users == nil:
		return nil, oops.Code("INVITE_CONFIG_INVALID").Errorf("users repository is required")
	case hasher == nil:
		return nil, oops.Code("INVITE_CONFIG_INVALID").Errorf("password hasher is required")
	case mailer == nil:
		return nil, oops.Code("INVITE_CONFIG_INVALID").Errorf("mailer is required")
	case composer == nil:
		return nil, oops.Code("INVITE_CONFIG_INVALID").Errorf("invite composer is required")
	}

	s := &InvitationService{
		users:       users,
		hasher:      hasher,
		mailer:      mailer,
		composer:    composer,
		suffixLen:   MinUsernameSuffixLen,
		passwordLen: MinTempPasswordLength,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// domainAllowed reports whether email may be invited.
func (s *InvitationService) domainAllowed(email string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return false
	}
	for _, g := range s.allowed {
		if g.Match(domain) {
			return true
		}
	}
	return false
}

// Invite creates a pending user with temporary credentials and emails
// them to the invitee. If the email cannot be delivered the user is kept
// and returned along with an INVITE_NOT_DELIVERED error.
func (s *InvitationService) Invite(ctx context.Context, inv Invitation) (*User, error) {
	email := NormalizeEmail(inv.Email)
	if strings.TrimSpace(inv.FullName) == "" || email == "" || strings.TrimSpace(inv.Role) == "" {
		return nil, oops.Code(CodeMissingField).Errorf("full name, email, and role are required")
	}

	if !s.domainAllowed(email) {
		return nil, oops.Code(CodeDomainNotAllowed).
			With("email", email).
			Errorf("email domain is not allowed")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, oops.Code(CodeUserExists).With("email", email).Errorf("user with this email already exists")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("INVITE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	password, err := GenerateTempPassword(s.passwordLen)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("INVITE_FAILED").
			With("operation", "hash temporary password").
			Wrap(err)
	}

	user, err := s.createPending(ctx, inv, email, hash)
	if err != nil {
		return nil, err
	}
	username := user.Username

	s.logger.Info("user invited", "email", email, "username", username, "role", user.Role)

	if err := s.notify(ctx, InviteNotice{
		FullName: user.FullName,
		Email:    email,
		Username: username,
		Password: password,
	}); err != nil {
		errutil.LogError(s.logger, "invitation email not delivered", err, "email", email)
		return user, oops.Code(CodeNotDelivered).
			With("email", email).
			Errorf("user created but failed to send invitation email")
	}

	return user, nil
}

// maxUsernameAttempts bounds how many generated usernames Invite tries
// before giving up on collisions.
const maxUsernameAttempts = 3

// createPending stores a pending user under a freshly generated username.
// A duplicate on insert is re-checked against email: an email that now
// exists is reported as such, otherwise the username collided and a new
// suffix is drawn.
func (s *InvitationService) createPending(ctx context.Context, inv Invitation, email, hash string) (*User, error) {
	for range maxUsernameAttempts {
		username, err := GenerateTempUsername(email, s.suffixLen)
		if err != nil {
			return nil, err
		}

		user, err := NewUser(inv.FullName, email, username, hash, inv.Role)
		if err != nil {
			return nil, err
		}
		user.Department = strings.TrimSpace(inv.Department)
		user.Notes = strings.TrimSpace(inv.Notes)

		err = s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, oops.Code("INVITE_FAILED").
				With("operation", "create user").
				Wrap(err)
		}

		_, lookupErr := s.users.GetByEmail(ctx, email)
		switch {
		case lookupErr == nil:
			return nil, oops.Code(CodeUserExists).With("email", email).Errorf("user with this email already exists")
		case !errors.Is(lookupErr, ErrNotFound):
			return nil, oops.Code("INVITE_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		s.logger.Debug("temporary username collided", "username", username)
	}

	return nil, oops.Code("INVITE_FAILED").
		With("email", email).
		With("attempts", maxUsernameAttempts).
		Errorf("could not allocate a unique temporary username")
}

func (s *InvitationService) notify(ctx context.Context, notice InviteNotice) error {
	subject, body, err := s.composer.ComposeInvite(notice)
	if err != nil {
		return oops.Code("INVITE_COMPOSE_FAILED").Wrap(err)
	}
	if err := s.mailer.Send(ctx, notice.Email, subject, body); err != nil {
		return oops.Code("INVITE_SEND_FAILED").Wrap(err)
	}
	return nil
}
