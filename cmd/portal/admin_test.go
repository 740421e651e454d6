// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/pkg/errutil"
)

const memoryConfig = `log:
  level: error
store:
  driver: memory
mail:
  driver: log
`

func TestAdminBootstrap(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, memoryConfig)

	out, _, err := executeRoot(t, "--config", path, "admin", "bootstrap", "--email", "Root@Example.com", "--username", "root")
	require.NoError(t, err)
	assert.Contains(t, out, "Created admin Root@Example.com")
	assert.Contains(t, out, "username: root")
	assert.Contains(t, out, "password: ")
}

func TestAdminBootstrap_RequiresEmail(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, memoryConfig)

	_, _, err := executeRoot(t, "--config", path, "admin", "bootstrap")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestAdminInvite(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, memoryConfig)

	out, _, err := executeRoot(t, "--config", path, "admin", "invite",
		"--name", "Jane Doe", "--email", "jane@example.com", "--department", "Ops")
	require.NoError(t, err)
	assert.Contains(t, out, "Invited jane@example.com as ")
}

func TestAdminInvite_MissingFields(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, memoryConfig)

	_, _, err := executeRoot(t, "--config", path, "admin", "invite", "--email", "jane@example.com")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_MISSING_FIELD")
}

func TestAdminUsers_Empty(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, memoryConfig)

	out, _, err := executeRoot(t, "--config", path, "admin", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "0 users (0 active, 0 pending)")
}

func TestAdminDelete_UnknownUser(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, memoryConfig)

	_, _, err := executeRoot(t, "--config", path, "admin", "delete", "nobody@example.com")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_USER_NOT_FOUND")
}

func TestAdminSweep(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, memoryConfig)

	out, _, err := executeRoot(t, "--config", path, "admin", "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 expired sessions")
}

func TestAdmin_InvalidConfig(t *testing.T) {
	isolateConfig(t)
	path := writeConfig(t, "store:\n  driver: postgres\n")

	_, _, err := executeRoot(t, "--config", path, "admin", "users")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
