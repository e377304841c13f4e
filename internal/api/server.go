package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/api/handlers"
	"github.com/Florenz0707/NASSAV-sub000/internal/api/middleware"
	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Dependencies groups what the routes serve
type Dependencies struct {
	Media    handlers.MediaService
	Counter  handlers.TranslationCounter
	Queue    handlers.QueueSnapshotter
	Sources  []string
	Health   map[string]handlers.Pinger
	Events   http.Handler
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	deps   Dependencies
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, deps Dependencies, logger *logrus.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}

	s.server = &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket connections stay open
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in the logging middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return middleware.Logging(mux, s.logger)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check
	mux.Handle("GET /health", handlers.NewHealthHandler(s.deps.Health, s.logger))

	// Status endpoint
	mux.Handle("GET /status", handlers.NewStatusHandler(s.deps.Counter, s.deps.Queue, s.deps.Sources, s.logger))

	// Media acquisition
	handlers.NewMediaHandler(s.deps.Media, s.logger).Register(mux)

	// Live events
	if s.deps.Events != nil {
		mux.Handle("GET /ws", s.deps.Events)
	}

	if s.deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
