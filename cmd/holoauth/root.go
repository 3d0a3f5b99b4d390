// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the holoauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holoauth",
		Short: "holoauth - password and token authentication service",
		Long: `holoauth registers users, verifies argon2id password credentials and
issues stateless HS256 session tokens over a JSON HTTP API backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/holoauth/config.yaml)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads configuration for cmd, honouring --config (or the XDG
// default file) and any configuration flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := config.ResolvePath(configFile)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by config
	}
	//nolint:wrapcheck // config.Load returns coded oops errors
	return config.Load(path, cmd.Flags())
}
