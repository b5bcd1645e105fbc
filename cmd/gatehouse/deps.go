// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"

	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendOpener connects the configured store.
	// Default: openBackend
	BackendOpener func(ctx context.Context, db config.DatabaseConfig) (*Backend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// WebServerFactory creates the HTTP API server.
	// Default: web.NewServer
	WebServerFactory func(addr string, opts web.Options) (WebServer, error)

	// Signals delivers shutdown signals.
	// Default: SIGINT and SIGTERM via signal.Notify
	Signals <-chan os.Signal

	// Started is called once every server is listening.
	Started func(webAddr string)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer interface wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
