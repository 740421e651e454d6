// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/logging"
	"github.com/holomush/portal/pkg/errutil"
)

// NewAdminCmd creates the admin command group for operator tasks that
// run against the configured store without the API.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator tasks against the user store",
	}

	cmd.AddCommand(newAdminBootstrapCmd())
	cmd.AddCommand(newAdminInviteCmd())
	cmd.AddCommand(newAdminUsersCmd())
	cmd.AddCommand(newAdminDeleteCmd())
	cmd.AddCommand(newAdminSweepCmd())
	return cmd
}

// withServices loads configuration, opens the backends and runs fn. The
// log level is raised to warn unless the config asks for debug.
func withServices(cmd *cobra.Command, tweak func(*config.Config), fn func(ctx context.Context, cfg *config.Config, svc *services, logger *slog.Logger) error) error {
	cfg, err := config.Load(config.LoadOptions{File: configFile})
	if err != nil {
		return err
	}
	if tweak != nil {
		tweak(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	level = max(level, slog.LevelWarn)
	if cfg.Log.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := logging.Setup("portal", version, cfg.Log.Format, level, cmd.ErrOrStderr())

	ctx := cmd.Context()
	backends, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close()

	sender, err := newMailSender(cfg.Mail, logger)
	if err != nil {
		return err
	}
	svc, err := buildServices(cfg, backends, sender, logger)
	if err != nil {
		return err
	}
	return fn(ctx, cfg, svc, logger)
}

func newAdminBootstrapCmd() *cobra.Command {
	var email, username string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the default administrator if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tweak := func(cfg *config.Config) {
				if email != "" {
					cfg.Auth.AdminEmail = email
				}
				if username != "" {
					cfg.Auth.AdminUsername = username
				}
			}
			return withServices(cmd, tweak, func(ctx context.Context, cfg *config.Config, svc *services, logger *slog.Logger) error {
				if cfg.Auth.AdminEmail == "" {
					return oops.Code("CONFIG_INVALID").With("key", "auth.admin_email").Errorf("admin email is required: set auth.admin_email or --email")
				}
				password, err := bootstrapAdmin(ctx, cfg, svc, logger)
				if err != nil {
					return err
				}
				if password == "" {
					cmd.Printf("Admin %s already exists\n", cfg.Auth.AdminEmail)
					return nil
				}
				cmd.Printf("Created admin %s\n", cfg.Auth.AdminEmail)
				cmd.Printf("  username: %s\n", cfg.Auth.AdminUsername)
				cmd.Printf("  password: %s\n", password)
				cmd.Println("Change this password after first login.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email (overrides auth.admin_email)")
	cmd.Flags().StringVar(&username, "username", "", "administrator username (overrides auth.admin_username)")
	return cmd
}

func newAdminInviteCmd() *cobra.Command {
	var inv auth.Invitation
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite a user and email temporary credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, nil, func(ctx context.Context, _ *config.Config, svc *services, _ *slog.Logger) error {
				user, err := svc.invites.Invite(ctx, inv)
				if err != nil {
					if user != nil && errutil.HasCode(err, auth.CodeNotDelivered) {
						cmd.Printf("Created %s (%s) but the invitation email was not delivered\n", user.Email, user.Username)
					}
					return err
				}
				cmd.Printf("Invited %s as %s\n", user.Email, user.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inv.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&inv.Email, "email", "", "email address")
	cmd.Flags().StringVar(&inv.Role, "role", "user", "role")
	cmd.Flags().StringVar(&inv.Department, "department", "", "department")
	cmd.Flags().StringVar(&inv.Notes, "notes", "", "notes")
	return cmd
}

func newAdminUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, nil, func(ctx context.Context, _ *config.Config, svc *services, _ *slog.Logger) error {
				users, err := svc.directory.List(ctx)
				if err != nil {
					return err
				}
				stats, err := svc.directory.Stats(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "EMAIL\tUSERNAME\tNAME\tROLE\tSTATUS")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.Email, u.Username, u.FullName, u.Role, u.Status)
				}
				if err := w.Flush(); err != nil {
					return oops.Wrap(err)
				}
				cmd.Printf("%d users (%d active, %d pending)\n", stats.TotalUsers, stats.ActiveUsers, stats.PendingUsers)
				return nil
			})
		},
	}
}

func newAdminDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete EMAIL",
		Short: "Delete a user by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, nil, func(ctx context.Context, _ *config.Config, svc *services, _ *slog.Logger) error {
				if err := svc.directory.Delete(ctx, args[0]); err != nil {
					return err
				}
				cmd.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newAdminSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired sessions now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, nil, func(ctx context.Context, _ *config.Config, svc *services, _ *slog.Logger) error {
				n, err := svc.sessions.SweepExpired(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Removed %d expired sessions\n", n)
				return nil
			})
		},
	}
}
