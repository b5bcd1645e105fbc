// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/logging"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/web"
	"github.com/holomush/gatehouse/pkg/gametoken"
)

// shutdownTimeout bounds draining in-flight requests on shutdown.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Serve the account, character and login-token API, plus metrics and
health probes on the metrics address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the gateway until a signal, a server failure or ctx
// cancellation. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendOpener == nil {
		deps.BackendOpener = openBackend
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = func(addr string, opts web.Options) (WebServer, error) {
			return web.NewServer(addr, opts)
		}
	}
	if deps.Signals == nil {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		deps.Signals = sigChan
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format)
	logger.Info("starting gateway",
		"addr", cfg.Server.Addr(),
		"driver", cfg.Database.Driver,
		"game_host", cfg.Game.Host,
	)

	backend, err := deps.BackendOpener(ctx, cfg.Database)
	if err != nil {
		return oops.With("operation", "open store").Wrap(err)
	}
	defer backend.Close()

	hasher, err := auth.NewBcryptHasher(cfg.Hashing.Cost, cfg.Hashing.Concurrency)
	if err != nil {
		return err
	}
	issuer, err := gametoken.NewIssuer(cfg.Token.Secret, gametoken.WithTTL(cfg.Token.TTL))
	if err != nil {
		return err
	}
	svc, err := auth.NewService(auth.ServiceDeps{
		Accounts:   backend.Accounts,
		Characters: backend.Characters,
		Transactor: backend.Transactor,
		Hasher:     hasher,
		Tokens:     issuer,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), shutdownTimeout)
	}

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ping)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer func() {
			sctx, scancel := shutdownCtx()
			defer scancel()
			if err := obsServer.Stop(sctx); err != nil {
				slog.Warn("error stopping observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
	}

	webServer, err := deps.WebServerFactory(cfg.Server.Addr(), web.Options{
		Gateway:  svc,
		GameHost: cfg.Game.Host,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	webErrCh, err := webServer.Start()
	if err != nil {
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	cmd.Println("Gateway started")
	if deps.Started != nil {
		deps.Started(webServer.Addr())
	}

	select {
	case sig := <-deps.Signals:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	sctx, scancel := shutdownCtx()
	defer scancel()
	if err := webServer.Stop(sctx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when a server reports a failure. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
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
			cancel()
		}
	case <-ctx.Done():
	}
}
