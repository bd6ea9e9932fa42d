// Package httpserver wires the docsync display API, event stream and metrics onto
// one HTTP listener.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsync/internal/events"
	derrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/server/handlers"
	smw "git.home.luguber.info/inful/docsync/internal/server/middleware"
)

// Options configures optional endpoints.
type Options struct {
	// Registry enables /metrics when set.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Server serves one session.
type Server struct {
	addr         string
	opts         Options
	errorAdapter *derrors.HTTPErrorAdapter
	server       *http.Server
	listener     net.Listener

	sessionHandlers    *handlers.SessionHandlers
	streamHandler      *handlers.StreamHandler
	monitoringHandlers *handlers.MonitoringHandlers

	mchain func(http.Handler) http.Handler
}

// New constructs the server wiring for session.
func New(addr string, session handlers.Session, bus *events.Bus, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	adapter := derrors.NewHTTPErrorAdapter(opts.Logger)
	return &Server{
		addr:               addr,
		opts:               opts,
		errorAdapter:       adapter,
		sessionHandlers:    handlers.NewSessionHandlers(session, adapter),
		streamHandler:      handlers.NewStreamHandler(bus),
		monitoringHandlers: handlers.NewMonitoringHandlers(session),
		mchain:             smw.Chain(opts.Logger, adapter),
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	sh := s.sessionHandlers

	mux.HandleFunc("GET /api/document", sh.HandleDocument)
	mux.HandleFunc("GET /api/tree", sh.HandleTree)
	mux.HandleFunc("GET /api/sections", sh.HandleSections)
	mux.HandleFunc("GET /api/state", sh.HandleState)
	mux.HandleFunc("POST /api/research", sh.HandleResearch)
	mux.HandleFunc("POST /api/sections/regenerate", sh.HandleRegenerate)
	mux.HandleFunc("POST /api/sections/exit", sh.HandleExitSection)
	mux.HandleFunc("POST /api/edit/begin", sh.HandleBeginEdit)
	mux.HandleFunc("POST /api/edit/save", sh.HandleSaveEdit)
	mux.HandleFunc("POST /api/edit/cancel", sh.HandleCancelEdit)
	mux.HandleFunc("POST /api/reset", sh.HandleReset)
	mux.HandleFunc("POST /api/confirm/{id}", sh.HandleConfirm)
	mux.HandleFunc("POST /api/decline/{id}", sh.HandleDecline)

	mux.HandleFunc("GET /ws/events", s.streamHandler.HandleEvents)
	mux.HandleFunc("GET /healthz", s.monitoringHandlers.HandleHealth)
	if s.opts.Registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	return s.mchain(mux)
}

// Start binds the listen address and serves in the background. Binding happens
// before returning so an address in use fails fast.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "http startup failed").
			WithContext("addr", s.addr).
			Build()
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("display server error", logfields.Error(err))
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "display server shutdown").Build()
	}
	slog.Info("HTTP server stopped")
	return nil
}
