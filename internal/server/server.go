// Package server exposes a KektorNav engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanonone/kektornav/pkg/engine"
)

// Server holds the HTTP interface and the underlying engine.
type Server struct {
	Engine *engine.Engine

	cfg         Config
	httpServer  *http.Server
	taskManager *TaskManager

	// tasks is a semaphore over background imports so Shutdown can wait
	// for them.
	tasks chan struct{}
}

// maxConcurrentImports bounds the number of imports running at once.
const maxConcurrentImports = 4

// NewServer builds the HTTP server around an opened engine.
// The engine is not closed by Shutdown; the caller owns its lifecycle.
func NewServer(eng *engine.Engine, cfg Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("server requires an engine")
	}
	s := &Server{
		Engine:      eng,
		cfg:         cfg,
		taskManager: NewTaskManager(),
		tasks:       make(chan struct{}, maxConcurrentImports),
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Chain middlewares: Recovery -> Logging -> Auth -> Mux
	var handler http.Handler = mux
	handler = s.AuthMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler, including unauthenticated routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight requests and
// running imports to finish. It does NOT close the Engine.
func (s *Server) Shutdown() {
	slog.Info("Starting graceful shutdown of HTTP Server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Acquire every import slot: once all are held no import is running.
	for i := 0; i < cap(s.tasks); i++ {
		select {
		case s.tasks <- struct{}{}:
		case <-ctx.Done():
			slog.Warn("Timed out waiting for background imports")
			return
		}
	}
}
