// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/physicalai/authd/internal/auth/postgres"
	"github.com/physicalai/authd/internal/config"
	"github.com/physicalai/authd/internal/store"
)

// NewPurgeSessionsCmd creates the purge-sessions subcommand. Expired
// sessions are also reclaimed lazily on access; this removes the ones
// nobody ever presents again.
func NewPurgeSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired sessions",
		Long:  `Delete every session whose expiry has passed. Safe to run while the service is up.`,
		RunE:  runPurgeSessions,
	}

	cmd.Flags().String("database-url", "", "PostgreSQL connection string (falls back to DATABASE_URL)")

	return cmd
}

func runPurgeSessions(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url (or DATABASE_URL) is required")
	}

	ctx := cmd.Context()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	purged, err := postgres.NewSessionRepository(pool).DeleteExpired(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Purged %d expired sessions\n", purged)
	return nil
}
