// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/api"
	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/logging"
	"github.com/holomush/portal/internal/observability"
)

// shutdownTimeout bounds graceful shutdown of the listeners.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		Long: `Start the portal API server. It serves the single action endpoint,
sweeps expired sessions in the background and, when configured, exposes
metrics and health probes on a separate listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	config.BindFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the server until ctx is cancelled or a listener
// fails.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault("portal", version, cfg.Log.Format, level)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backends, err := deps.BackendsFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open backends").Wrap(err)
	}
	defer backends.Close()

	sender, err := deps.MailSenderFactory(cfg.Mail, logger)
	if err != nil {
		return oops.With("operation", "create mail sender").Wrap(err)
	}

	svc, err := buildServices(cfg, backends, sender, logger)
	if err != nil {
		return err
	}

	if cfg.Auth.BootstrapAdmin {
		password, err := bootstrapAdmin(ctx, cfg, svc, logger)
		if err != nil {
			return err
		}
		if password != "" {
			cmd.Println("Default admin user created; change its password")
		}
	}

	var ready atomic.Bool
	failed := make(chan string, 2)

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", failed)
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	handler, err := api.NewHandler(svc.auth, svc.directory, svc.invites,
		api.WithLogger(logger),
		api.WithObserver(metrics),
	)
	if err != nil {
		stopServers(logger, obsServer)
		return err
	}

	apiServer := deps.APIServerFactory(cfg.HTTP.Addr, cfg.HTTP.Path, handler, logger)
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopServers(logger, obsServer)
		return oops.Code("API_START_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api", failed)

	sweeper := auth.NewSweeper(svc.sessions, cfg.Sessions.SweepInterval, metrics, logger)
	var wg sync.WaitGroup
	wg.Go(func() { sweeper.Run(ctx) })

	ready.Store(true)
	cmd.Println("Portal started")
	logger.Info("portal ready",
		"api_addr", apiServer.Addr(),
		"path", cfg.HTTP.Path,
		"store", cfg.Store.Driver,
		"sessions", cfg.Sessions.Backend,
	)

	<-ctx.Done()
	ready.Store(false)
	logger.Info("shutting down...")

	stopServers(logger, apiServer, obsServer)
	wg.Wait()

	select {
	case name := <-failed:
		return oops.Code("SERVER_FAILED").With("server", name).Errorf("%s server failed", name)
	default:
	}

	logger.Info("shutdown complete")
	return nil
}

// stopServers stops each non-nil server within shutdownTimeout.
func stopServers(logger *slog.Logger, servers ...Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, s := range servers {
		if s == nil {
			continue
		}
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping server", "addr", s.Addr(), "error", err)
		}
	}
}

// monitorServerErrors cancels ctx when a server reports an error, and
// records the server name on failed.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, failed chan<- string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			select {
			case failed <- serverName:
			default:
			}
			cancel()
		}
	case <-ctx.Done():
	}
}
