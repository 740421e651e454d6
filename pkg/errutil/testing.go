// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err is an oops error whose code, as
// reported by Code, is code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.True(t, HasCode(err, code), "expected code %q, got %q: %v", code, Code(err), err)
}

// AssertNotErrorCode asserts that err is non-nil and does not carry code.
func AssertNotErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.False(t, HasCode(err, code), "unexpected code %q: %v", code, err)
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	require.Contains(t, ctx, key, "context of %q error", Code(err))
	assert.Equal(t, value, ctx[key])
}
