// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - account and session service",
		Long: `authd is the account and session service for the Physical AI
textbook platform: registration, login, bearer-token sessions and
reader profiles over a small HTTP API.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default $XDG_CONFIG_HOME/authd/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPurgeSessionsCmd())

	return cmd
}
