// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"bytes"
	"text/template"

	"github.com/samber/oops"

	"github.com/holomush/portal/internal/auth"
)

// Defaults for InvitationTemplate.
const (
	DefaultOrgName  = "Lightbox Digital"
	DefaultSetupURL = "[YOUR_USER_SETUP_URL]"
)

const invitationBody = `Dear {{.FullName}},

Welcome to the {{.Org}} team! You have been granted access to our admin system.

🔑 Your temporary login credentials:
Username: {{.Username}}
Password: {{.Password}}

📋 Next Steps:
1. Visit our account setup page: {{.SetupURL}}
2. Log in with the temporary credentials above
3. Choose your permanent username and password
4. Start using the admin system!

⚠️ Important Security Notes:
- These are temporary credentials that expire once you complete setup
- You must complete setup within 7 days
- Choose a strong password with at least 8 characters, including uppercase, lowercase, and numbers

🎯 What you'll have access to:
- User management dashboard
- System administration tools
- Project collaboration features

Need help? Reply to this email or contact our admin team.

Best regards,
The {{.Org}} Team

---
This is an automated message. Please do not reply to this email address.
`

var invitationTmpl = template.Must(template.New("invitation").Parse(invitationBody))

// InvitationTemplate renders invitation emails for an organisation.
type InvitationTemplate struct {
	org      string
	setupURL string
}

// NewInvitationTemplate creates an InvitationTemplate. Empty arguments
// take DefaultOrgName and DefaultSetupURL.
func NewInvitationTemplate(org, setupURL string) *InvitationTemplate {
	if org == "" {
		org = DefaultOrgName
	}
	if setupURL == "" {
		setupURL = DefaultSetupURL
	}
	return &InvitationTemplate{org: org, setupURL: setupURL}
}

// ComposeInvite implements auth.InviteComposer.
func (t *InvitationTemplate) ComposeInvite(notice auth.InviteNotice) (string, string, error) {
	var body bytes.Buffer
	err := invitationTmpl.Execute(&body, struct {
		auth.InviteNotice
		Org      string
		SetupURL string
	}{notice, t.org, t.setupURL})
	if err != nil {
		return "", "", oops.Code("MAIL_TEMPLATE_FAILED").With("template", "invitation").Wrap(err)
	}
	return "Welcome to " + t.org + " Admin System", body.String(), nil
}
