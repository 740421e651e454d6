// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to a logger instead of delivering them.
// Bodies may contain credentials; use it only in development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs msg at INFO.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail (not delivered)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}
