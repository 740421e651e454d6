// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// DashboardStats summarizes the directory for the admin console.
type DashboardStats struct {
	TotalUsers   int `json:"totalUsers"`
	ActiveUsers  int `json:"activeUsers"`
	PendingUsers int `json:"pendingUsers"`
}

// Directory exposes the admin view of the user roster.
type Directory struct {
	users UserRepository
}

// NewDirectory creates a Directory over users.
func NewDirectory(users UserRepository) (*Directory, error) {
	if users == nil {
		return nil, oops.Code("DIRECTORY_INVALID").Errorf("users repository is required")
	}
	return &Directory{users: users}, nil
}

// List returns every user without password material.
func (d *Directory) List(ctx context.Context) ([]UserSummary, error) {
	users, err := d.users.List(ctx)
	if err != nil {
		return nil, oops.Code("DIRECTORY_LIST_FAILED").Wrap(err)
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Stats counts users by status.
func (d *Directory) Stats(ctx context.Context) (DashboardStats, error) {
	users, err := d.users.List(ctx)
	if err != nil {
		return DashboardStats{}, oops.Code("DIRECTORY_STATS_FAILED").Wrap(err)
	}
	stats := DashboardStats{TotalUsers: len(users)}
	for _, u := range users {
		switch u.Status {
		case StatusActive:
			stats.ActiveUsers++
		case StatusPending:
			stats.PendingUsers++
		}
	}
	return stats, nil
}

// Delete removes the user with the given email. Sessions held by the
// user are left to expire.
func (d *Directory) Delete(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return oops.Code(CodeMissingField).With("field", "email").Errorf("email is required")
	}
	if err := d.users.DeleteByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).With("email", email).Errorf("user not found")
		}
		return oops.Code("DIRECTORY_DELETE_FAILED").
			With("email", email).
			Wrap(err)
	}
	return nil
}
