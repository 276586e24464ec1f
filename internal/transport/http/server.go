package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chinaecon/internal/config"
)

// NewRouter assembles the full route tree: the JSON API under /api, a
// health probe, and the exported report files under /reports.
func NewRouter(store *RunStore, reportsDir string, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", Healthz)
	r.Mount("/api", NewHandler(store, logger).Routes())

	fs := http.StripPrefix("/reports/", http.FileServer(http.Dir(reportsDir)))
	r.Get("/reports/*", fs.ServeHTTP)

	return r
}

// Server wraps the standard http.Server with the configured timeouts.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the report server listening on the configured port.
func NewServer(cfg config.ServerConfig, router chi.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("report server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("report server shutting down")
	return s.httpServer.Shutdown(ctx)
}
