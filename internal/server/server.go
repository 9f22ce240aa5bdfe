// Package server exposes the daemon's control surface: a bearer-token
// protected JSON-RPC 2.0 endpoint over HTTP POST, and a WebSocket event
// stream that carries the same methods plus server push notifications.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/creachadair/jrpc2/jhttp"

	"github.com/tunsel/tunsel/internal/engine"
	"github.com/tunsel/tunsel/internal/event"
	"github.com/tunsel/tunsel/pkg/logger"
)

// Config holds the settings of the control surface.
type Config struct {
	Addr    string // listen address, host:port
	Secret  string // auth token (required, empty disables the server)
	Version string
	Commit  string
}

// Server serves the JSON-RPC control surface for one engine.
type Server struct {
	addr     string
	secret   string
	rpc      *rpcHandler
	bridge   jhttp.Bridge
	notifier *event.Notifier
	log      logger.Logger

	mu   sync.Mutex
	http *http.Server
}

// New builds a server. The notifier receives the per-connection jrpc2
// servers of /events clients; wire it to the engine's event bus with
// Notifier.Pump.
func New(cfg Config, eng *engine.Engine, notifier *event.Notifier, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	rpc := newRPCHandler(eng, cfg.Version, cfg.Commit)
	return &Server{
		addr:     cfg.Addr,
		secret:   cfg.Secret,
		rpc:      rpc,
		bridge:   rpc.bridge(),
		notifier: notifier,
		log:      log,
	}
}

// handler assembles the route table. Split out so tests can mount it on
// an httptest server.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", requireToken(s.secret, s.bridge))
	mux.Handle("/events", requireToken(s.secret, http.HandlerFunc(s.serveEvents)))
	return mux
}

// Start runs the HTTP listener until Shutdown or a listener error.
func (s *Server) Start() error {
	s.mu.Lock()
	s.http = &http.Server{
		Addr:    s.addr,
		Handler: s.handler(),
	}
	s.mu.Unlock()

	s.log.Info("server: listening on %s", s.addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener and releases the bridge's goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.bridge.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
