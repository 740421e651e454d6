// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/auth/mocks"
	"github.com/holomush/portal/pkg/errutil"
)

func TestBootstrap_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates active admin with defaults", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		store, err := auth.NewSessionStore(sessions)
		require.NoError(t, err)
		logger, buf := newCapturingLogger()
		b := auth.NewBootstrap(users, store, auth.NewArgon2idHasher(), logger)

		var created *auth.User
		users.On("GetByEmail", ctx, "admin@example.com").Return(nil, auth.ErrNotFound)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*auth.User) }).
			Return(nil)
		sessions.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), nil)

		password, err := b.EnsureAdmin(ctx, auth.AdminConfig{Email: "Admin@Example.com"})
		require.NoError(t, err)
		assert.Len(t, password, auth.MinTempPasswordLength)

		require.NotNil(t, created)
		assert.Equal(t, "admin", created.Username)
		assert.Equal(t, "Admin User", created.FullName)
		assert.Equal(t, auth.RoleAdmin, created.Role)
		assert.True(t, created.IsActive())
		assert.Equal(t, "Default admin user", created.Notes)

		ok, err := auth.NewArgon2idHasher().Verify(password, created.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)

		entry := findLog(logLines(t, buf), "default admin user created; change this password")
		require.NotNil(t, entry)
		assert.Equal(t, "WARN", entry["level"])
	})

	t.Run("existing admin is left alone", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		b := auth.NewBootstrap(users, nil, mocks.NewMockPasswordHasher(t), nil)

		users.On("GetByEmail", ctx, "admin@example.com").Return(activeUser(t, "admin"), nil)

		password, err := b.EnsureAdmin(ctx, auth.AdminConfig{Email: "admin@example.com"})
		require.NoError(t, err)
		assert.Empty(t, password)
	})

	t.Run("email required", func(t *testing.T) {
		b := auth.NewBootstrap(mocks.NewMockUserRepository(t), nil, mocks.NewMockPasswordHasher(t), nil)
		_, err := b.EnsureAdmin(ctx, auth.AdminConfig{})
		errutil.AssertErrorCode(t, err, "BOOTSTRAP_CONFIG_INVALID")
	})
}
