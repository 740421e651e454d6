// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/holomush/portal/internal/api"
	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/mail"
	"github.com/holomush/portal/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendsFactory opens the user and session repositories.
	// Default: openBackends
	BackendsFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error)

	// MailSenderFactory creates the outbound mail sender.
	// Default: newMailSender
	MailSenderFactory func(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error)

	// APIServerFactory creates the API server.
	// Default: api.NewServer
	APIServerFactory func(addr, path string, handler http.Handler, logger *slog.Logger) Server

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// Server is a listener that can be started and stopped.
type Server interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer interface for the observability server.
type ObservabilityServer interface {
	Server
	Metrics() *observability.Metrics
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.BackendsFactory == nil {
		out.BackendsFactory = openBackends
	}
	if out.MailSenderFactory == nil {
		out.MailSenderFactory = newMailSender
	}
	if out.APIServerFactory == nil {
		out.APIServerFactory = func(addr, path string, handler http.Handler, logger *slog.Logger) Server {
			return api.NewServer(addr, path, handler, logger)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	return &out
}
