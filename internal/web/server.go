// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/character"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/pkg/gametoken"
)

// Gateway is the workflow surface the HTTP layer drives. *auth.Service
// implements it.
type Gateway interface {
	CreateAccount(ctx context.Context, accountID, password string, req auth.CharacterRequest) (*character.Character, error)
	CreateCharacter(ctx context.Context, accountID, password string, req auth.CharacterRequest) (*character.Character, error)
	IssueAccountToken(ctx context.Context, accountID, password string) (gametoken.Token, error)
	IssueCharacterToken(ctx context.Context, accountID, password, name string) (gametoken.Token, error)
	ListCharacters(ctx context.Context, accountID, password string) ([]character.Summary, error)
}

var _ Gateway = (*auth.Service)(nil)

// Options configures a Server.
type Options struct {
	Gateway Gateway
	// GameHost is returned alongside every token.
	GameHost string
	// Metrics is optional.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// Server serves the gateway's HTTP API.
type Server struct {
	addr     string
	gateway  Gateway
	gameHost string
	metrics  *observability.Metrics
	logger   *slog.Logger
	router   *mux.Router

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a server that will listen on addr ("host:port").
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Gateway == nil {
		return nil, oops.Errorf("gateway is required")
	}
	if opts.GameHost == "" {
		return nil, oops.Errorf("game host is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:     addr,
		gateway:  opts.Gateway,
		gameHost: opts.GameHost,
		metrics:  opts.Metrics,
		logger:   logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/", s.handleAccountLogin).Methods(http.MethodGet)
	r.HandleFunc("/characters", s.handleCreateCharacter).Methods(http.MethodPost)
	r.HandleFunc("/characters", s.handleListCharacters).Methods(http.MethodGet)
	r.HandleFunc("/login-character", s.handleCharacterLogin).Methods(http.MethodGet)

	// A supported verb on a path that does not take it is just an unknown
	// resource.
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)
	return r
}

// Handler returns the API with request IDs, logging and metrics applied.
func (s *Server) Handler() http.Handler {
	return s.instrument(rejectUnsupportedMethods(s.router))
}

// Start listens and serves in the background. The returned channel receives
// a serve failure, if any, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown web server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
