// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the portal CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Portal - user administration backend",
		Long: `Portal is the backend of a small admin console: password login with
expiring sessions, invitation of users by email, and first-login account
setup.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAdminCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
