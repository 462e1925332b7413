// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Physical AI Textbook Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/physicalai/authd/internal/auth"
	"github.com/physicalai/authd/internal/auth/postgres"
	"github.com/physicalai/authd/internal/config"
	"github.com/physicalai/authd/internal/httpapi"
	"github.com/physicalai/authd/internal/logging"
	"github.com/physicalai/authd/internal/observability"
	"github.com/physicalai/authd/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API server",
		Long: `Start the HTTP API server. Applies pending database migrations,
then serves the auth API and, on a separate listener, metrics and
health probes.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen-addr", config.DefaultListenAddr, "API listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics listen address (empty disables)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection string (falls back to DATABASE_URL)")
	cmd.Flags().Duration("session-ttl", config.DefaultSessionTTL, "session lifetime")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format: json or text")
	cmd.Flags().String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault(logging.Options{
		Service: "authd",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Schema before traffic. The API never runs DDL of its own.
	if err := migrateUp(cfg.DatabaseURL); err != nil {
		return err
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, err := auth.NewService(
		postgres.NewUserRepository(pool),
		postgres.NewSessionRepository(pool),
		auth.NewArgon2idHasher(),
		postgres.NewTransactor(pool),
		cfg.SessionTTL,
	)
	if err != nil {
		return err
	}

	var ready atomic.Bool

	var metrics *observability.Metrics
	var obsServer *observability.Server
	var obsErrCh <-chan error
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, ready.Load)
		metrics = obsServer.Metrics()
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return oops.Code("OBS_START_FAILED").Wrap(err)
		}
		defer stopServer(obsServer.Stop, "observability")
	}

	api := httpapi.NewAPI(svc, slog.Default(), metrics)
	apiServer := httpapi.NewServer(cfg.ListenAddr, api.Handler())
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.Code("API_START_FAILED").Wrap(err)
	}
	defer stopServer(apiServer.Stop, "api")

	ready.Store(true)
	slog.Info("authd ready",
		"addr", apiServer.Addr(),
		"session_ttl", cfg.SessionTTL.String(),
	)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		return nil
	case err := <-apiErrCh:
		if err != nil {
			return oops.Code("API_SERVER_FAILED").Wrap(err)
		}
		return nil
	case err := <-obsErrCh:
		if err != nil {
			return oops.Code("OBS_SERVER_FAILED").Wrap(err)
		}
		return nil
	}
}

func migrateUp(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("migrator close failed", "error", closeErr)
		}
	}()

	return migrator.Up()
}

func stopServer(stop func(context.Context) error, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		slog.Error("server stop failed", "server", name, "error", err)
	}
}
