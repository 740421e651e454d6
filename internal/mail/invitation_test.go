// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/mail"
)

func TestInvitationTemplate_Defaults(t *testing.T) {
	tmpl := mail.NewInvitationTemplate("", "")

	subject, body, err := tmpl.ComposeInvite(auth.InviteNotice{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Username: "jane_a1b2c3",
		Password: "Tmp0Pass1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to Lightbox Digital Admin System", subject)
	assert.Contains(t, body, "Dear Jane Doe,")
	assert.Contains(t, body, "Welcome to the Lightbox Digital team!")
	assert.Contains(t, body, "Username: jane_a1b2c3\n")
	assert.Contains(t, body, "Password: Tmp0Pass1234\n")
	assert.Contains(t, body, "Visit our account setup page: [YOUR_USER_SETUP_URL]")
	assert.Contains(t, body, "You must complete setup within 7 days")
	assert.Contains(t, body, "at least 8 characters, including uppercase, lowercase, and numbers")
	assert.Contains(t, body, "The Lightbox Digital Team")
}

func TestInvitationTemplate_Custom(t *testing.T) {
	tmpl := mail.NewInvitationTemplate("Acme", "https://portal.acme.test/setup")

	subject, body, err := tmpl.ComposeInvite(auth.InviteNotice{FullName: "Bob", Username: "bob_x", Password: "p"})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to Acme Admin System", subject)
	assert.Contains(t, body, "https://portal.acme.test/setup")
	assert.NotContains(t, body, "Lightbox")
}

func TestInvitationTemplate_DoesNotEscape(t *testing.T) {
	tmpl := mail.NewInvitationTemplate("", "")

	_, body, err := tmpl.ComposeInvite(auth.InviteNotice{FullName: "O'Brien & Sons", Password: "<a&b>"})
	require.NoError(t, err)

	assert.Contains(t, body, "Dear O'Brien & Sons,")
	assert.Contains(t, body, "Password: <a&b>")
}
