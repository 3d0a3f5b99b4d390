// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/httpapi"
	"github.com/holomush/holoauth/internal/logging"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/internal/store"
)

const (
	serviceName  = "holoauth"
	pingTimeout  = 2 * time.Second
	obsStopGrace = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API server",
		Long: `Start the HTTP API: register, login and current-user endpoints, plus
the metrics and health listener when metrics.addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the server until a signal arrives, ctx is cancelled
// or a listener fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = func(ctx context.Context, url string, attempts int, logger *slog.Logger) (Database, error) {
			return store.Connect(ctx, url, attempts, store.WithConnectLogger(logger))
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = migratorFactory
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}

	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck // already coded CONFIG_INVALID
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err //nolint:wrapcheck // coded by logging
	}
	logger := logging.Setup(serviceName, version, logging.Options{Format: cfg.Log.Format, Level: level}, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	key, err := auth.NewSigningKey(cfg.Auth.JWTSecret)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger.Info("starting holoauth",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format,
	)

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps.MigratorFactory, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
			if !ready.Load() {
				return false
			}
			pingCtx, pingCancel := context.WithTimeout(context.Background(), pingTimeout)
			defer pingCancel()
			return db.Ping(pingCtx) == nil
		}, logger)
		metrics = obsServer.Metrics()
	}

	poolOpts := []auth.HashPoolOption{}
	if metrics != nil {
		poolOpts = append(poolOpts, auth.WithHashObserver(metrics))
	}
	hashPool := auth.NewHashPool(auth.NewArgon2idHasher(), cfg.Auth.HashWorkers, poolOpts...)
	defer hashPool.Close()

	tokens := auth.NewTokenService(key)
	service, err := auth.NewService(postgres.NewUserRepository(db), hashPool, tokens, auth.WithLogger(logger))
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	router := httpapi.NewRouter(service, tokens, httpapi.WithLogger(logger), httpapi.WithMetrics(metrics))

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	apiServer := httpapi.NewServer(cfg.Server.Addr, router)

	apiErrCh := make(chan error, 1)
	go func() {
		defer close(apiErrCh)
		if serveErr := apiServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrCh <- serveErr
		}
	}()
	logger.Info("API server listening", "addr", listener.Addr().String(), "hash_workers", hashPool.Workers())

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			shutdownServer(apiServer, cfg.Server.ShutdownTimeout, logger)
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("holoauth started on " + listener.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case serveErr := <-apiErrCh:
		if serveErr != nil {
			runErr = oops.Code("API_SERVER_FAILED").Wrap(serveErr)
		}
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	logger.Info("shutting down...")

	// In-flight requests finish first; the pool drains next and the deferred
	// db.Close runs last.
	shutdownServer(apiServer, cfg.Server.ShutdownTimeout, logger)

	if obsServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), obsStopGrace)
		defer stopCancel()
		if err := obsServer.Stop(stopCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	hashPool.Close()
	logger.Info("shutdown complete")
	return runErr
}

func shutdownServer(srv *http.Server, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("error stopping API server", "error", err)
	}
}

// autoMigrate applies pending migrations before the server accepts traffic.
func autoMigrate(factory func(string) (Migrator, error), url string, logger *slog.Logger) error {
	migrator, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	version, _, err := migrator.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read version").Wrap(err)
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}

// monitorServerErrors cancels ctx when a background server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
