// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Status is the lifecycle state of a user account.
type Status string

// Account states. The only transition is pending -> active.
const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

// RoleAdmin is the role given to the bootstrap administrator.
const RoleAdmin = "admin"

// User is a directory entry.
type User struct {
	ID           ulid.ULID
	FullName     string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	Department   string
	Status       Status
	Notes        string
	CreatedAt    time.Time
}

// NewUser creates a validated pending user. Email is normalized.
func NewUser(fullName, email, username, passwordHash, role string) (*User, error) {
	email = NormalizeEmail(email)
	if strings.TrimSpace(fullName) == "" {
		return nil, oops.Code(CodeMissingField).With("field", "fullName").Errorf("full name cannot be empty")
	}
	if email == "" {
		return nil, oops.Code(CodeMissingField).With("field", "email").Errorf("email cannot be empty")
	}
	if username == "" {
		return nil, oops.Code(CodeMissingField).With("field", "username").Errorf("username cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeMissingField).With("field", "passwordHash").Errorf("password hash cannot be empty")
	}
	if strings.TrimSpace(role) == "" {
		return nil, oops.Code(CodeMissingField).With("field", "role").Errorf("role cannot be empty")
	}

	return &User{
		ID:           ulid.Make(),
		FullName:     strings.TrimSpace(fullName),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         strings.TrimSpace(role),
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// IsActive reports whether the account has completed setup.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsPending reports whether the account is still awaiting setup.
func (u *User) IsPending() bool {
	return u.Status == StatusPending
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserSummary is the listing view of a user. It never carries the
// password hash.
type UserSummary struct {
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Department  string    `json:"department,omitempty"`
	Status      Status    `json:"status"`
	CreatedDate time.Time `json:"createdDate"`
	Notes       string    `json:"notes"`
}

// Summary returns the listing view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		FullName:    u.FullName,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		Department:  u.Department,
		Status:      u.Status,
		CreatedDate: u.CreatedAt,
		Notes:       u.Notes,
	}
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicate if the email or
	// username is already present.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*User, error)

	// UpdateSetupFields sets the username and password hash of the user
	// with the given email and marks it active. Returns ErrNotFound if no
	// user matched and ErrDuplicate if the username belongs to someone else.
	UpdateSetupFields(ctx context.Context, email, username, passwordHash string) error

	// UpdatePasswordHash rewrites the stored digest for a user.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error

	// DeleteByEmail removes a user. Returns ErrNotFound if no user matched.
	DeleteByEmail(ctx context.Context, email string) error
}
