// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/portal/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			cmd.Print(string(out))
			return nil
		},
	}
	config.BindFlags(show.Flags())
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Check a config file against the schema and the runtime rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, args[0])
		},
	})

	return cmd
}

func runConfigValidate(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := config.ValidateYAML(data); err != nil {
		cmd.PrintErrln(config.FormatSchemaError(err))
		return err
	}

	cfg, err := config.Load(config.LoadOptions{File: path})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		cmd.PrintErrln(err.Error())
		return err
	}

	cmd.Printf("%s is valid\n", path)
	return nil
}
