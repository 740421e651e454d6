// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mail delivers the plain-text emails the portal sends: the
// invitation template, an SMTP sender, and a logging sender for
// development.
package mail

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/portal/internal/observability"
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Outbox adapts a Sender to the auth.Mailer signature.
type Outbox struct {
	sender Sender
	logger *slog.Logger
}

// NewOutbox creates an Outbox over sender. A nil logger falls back to
// slog.Default().
func NewOutbox(sender Sender, logger *slog.Logger) (*Outbox, error) {
	if sender == nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{sender: sender, logger: logger}, nil
}

// Send delivers one message to a single recipient.
func (o *Outbox) Send(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("recipient is required")
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return oops.Code("MAIL_INVALID_MESSAGE").
			With("to", to).
			Errorf("header values must not contain line breaks")
	}

	if err := o.sender.Send(ctx, Message{To: to, Subject: subject, Body: body}); err != nil {
		observability.RecordMailFailure()
		return oops.Code("MAIL_SEND_FAILED").With("to", to).Wrap(err)
	}
	o.logger.Debug("mail sent", "to", to, "subject", subject)
	return nil
}
