// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/auth"
)

const userColumns = `id, full_name, email, username, password_hash, role, department, status, notes, created_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID.String(),
		user.FullName,
		auth.NormalizeEmail(user.Email),
		user.Username,
		user.PasswordHash,
		user.Role,
		user.Department,
		string(user.Status),
		user.Notes,
		user.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return oops.Code("USER_DUPLICATE").
				With("constraint", constraint).
				With("email", user.Email).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. The email is normalized first.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = auth.NormalizeEmail(email)
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// List returns every user, oldest first.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "query users").Wrap(err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// UpdateSetupFields replaces the credentials of the user with email and
// marks the account active.
func (r *UserRepository) UpdateSetupFields(ctx context.Context, email, username, passwordHash string) error {
	email = auth.NormalizeEmail(email)
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET username = $2, password_hash = $3, status = $4
		WHERE email = $1
	`, email, username, passwordHash, string(auth.StatusActive))
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return oops.Code("USER_DUPLICATE").
				With("constraint", constraint).
				With("username", username).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update setup fields").
			With("email", email).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePasswordHash rewrites the stored digest of a user.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByEmail removes the user with email.
func (r *UserRepository) DeleteByEmail(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("email", email).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr     string
		status    string
		createdAt time.Time
		user      auth.User
	)
	err := row.Scan(
		&idStr,
		&user.FullName,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.Department,
		&status,
		&user.Notes,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ID").With("id", idStr).Wrap(err)
	}
	user.ID = id
	user.Status = auth.Status(status)
	user.CreatedAt = createdAt.UTC()
	return &user, nil
}
