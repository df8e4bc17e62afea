// Package server owns the HTTP listener and the server lifecycle.
package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/workbench/internal/api"
	"github.com/hashicorp-forge/workbench/internal/api/modules/workspacefs"
	"github.com/hashicorp-forge/workbench/internal/auth"
	"github.com/hashicorp-forge/workbench/internal/config"
	"github.com/hashicorp-forge/workbench/internal/editor"
	"github.com/hashicorp-forge/workbench/internal/workspace"
)

// Server serves the workspace API. Start and Stop are idempotent:
// starting a running server or stopping a stopped one is a no-op that
// reports false.
type Server struct {
	// Config is the configuration snapshot. It is treated read-only
	// after New.
	Config *config.Config

	// Logger is the logger for the server.
	Logger hclog.Logger

	users      *auth.Provider
	dispatcher *api.Dispatcher

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
}

// Options overrides collaborators for tests. Zero values select the
// production implementations.
type Options struct {
	// FS is the filesystem holding the workspace tree.
	FS afero.Fs

	// Opener opens files in the user's editor.
	Opener editor.Opener
}

// New wires a server from the configuration snapshot.
func New(cfg *config.Config, log hclog.Logger, opts Options) (*Server, error) {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Opener == nil {
		opts.Opener = editor.SystemOpener{}
	}

	users, err := auth.NewProvider(cfg, log.Named("auth"))
	if err != nil {
		return nil, fmt.Errorf("error building auth provider: %w", err)
	}

	resolver := workspace.NewResolver(cfg.Workspace.Root)

	registry := api.NewRegistry()
	registry.Register(workspacefs.New(
		opts.FS,
		resolver,
		cfg.Workspace.WithDot,
		opts.Opener,
		log.Named(workspacefs.ModuleName),
	))

	return &Server{
		Config:     cfg,
		Logger:     log,
		users:      users,
		dispatcher: api.NewDispatcher(cfg, log.Named("api"), users, registry),
	}, nil
}

// Start binds the listener and begins serving. It returns true when
// this call started the server and false when it was already running.
// A bind failure leaves the server stopped.
func (s *Server) Start() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return false, nil
	}

	listener, err := net.Listen("tcp", s.Config.Server.Addr)
	if err != nil {
		return false, fmt.Errorf("error binding %s: %w", s.Config.Server.Addr, err)
	}

	if ssl := s.Config.Server.SSL; ssl != nil {
		tlsCfg, err := tlsConfig(ssl)
		if err != nil {
			listener.Close()
			return false, err
		}
		listener = tls.NewListener(listener, tlsCfg)
	}

	s.listener = listener
	s.httpSrv = &http.Server{Handler: s.dispatcher}

	go func(srv *http.Server, log hclog.Logger) {
		if err := srv.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("listener stopped", "error", err)
		}
	}(s.httpSrv, s.Logger)

	s.Logger.Info("server started", "addr", listener.Addr().String())
	return true, nil
}

// Stop shuts the server down gracefully. It returns true when this
// call stopped the server and false when it was not running.
func (s *Server) Stop(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return false, nil
	}

	err := s.httpSrv.Shutdown(ctx)
	s.listener = nil
	s.httpSrv = nil

	if err != nil {
		return true, fmt.Errorf("error shutting down: %w", err)
	}
	s.Logger.Info("server stopped")
	return true, nil
}

// Addr returns the bound listener address, or empty when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the dispatcher, for tests that drive it without a
// socket.
func (s *Server) Handler() http.Handler {
	return s.dispatcher
}

// tlsConfig loads the listener's TLS material from the ssl block.
func tlsConfig(ssl *config.SSL) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(ssl.CertFile, ssl.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if ssl.CAFile != "" {
		pem, err := os.ReadFile(ssl.CAFile)
		if err != nil {
			return nil, fmt.Errorf("error reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", ssl.CAFile)
		}
		cfg.ClientCAs = pool
		if ssl.RejectUnauthorized {
			cfg.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			cfg.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}

	return cfg, nil
}
