// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/auth/mocks"
	"github.com/holomush/portal/pkg/errutil"
)

func TestDirectory(t *testing.T) {
	ctx := context.Background()

	_, err := auth.NewDirectory(nil)
	errutil.AssertErrorCode(t, err, "DIRECTORY_INVALID")

	t.Run("list and stats", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		dir, err := auth.NewDirectory(users)
		require.NoError(t, err)

		roster := []*auth.User{activeUser(t, "a"), activeUser(t, "b"), pendingUser(t, "c")}
		users.On("List", ctx).Return(roster, nil)

		list, err := dir.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "a", list[0].Username)

		stats, err := dir.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, auth.DashboardStats{TotalUsers: 3, ActiveUsers: 2, PendingUsers: 1}, stats)
	})

	t.Run("empty directory", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		dir, err := auth.NewDirectory(users)
		require.NoError(t, err)
		users.On("List", ctx).Return(nil, nil)

		list, err := dir.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("list failure", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		dir, err := auth.NewDirectory(users)
		require.NoError(t, err)
		users.On("List", ctx).Return(nil, errors.New("down"))

		_, err = dir.Stats(ctx)
		errutil.AssertErrorCode(t, err, "DIRECTORY_STATS_FAILED")
	})

	t.Run("delete", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		dir, err := auth.NewDirectory(users)
		require.NoError(t, err)

		users.On("DeleteByEmail", ctx, "a@example.com").Return(nil)
		users.On("DeleteByEmail", ctx, "ghost@example.com").Return(auth.ErrNotFound)

		assert.NoError(t, dir.Delete(ctx, " A@example.com"))
		errutil.AssertErrorCode(t, dir.Delete(ctx, "ghost@example.com"), auth.CodeUserNotFound)
		errutil.AssertErrorCode(t, dir.Delete(ctx, ""), auth.CodeMissingField)
	})
}
