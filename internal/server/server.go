// Package server exposes the composition pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/pipeline"
)

// Composer produces compositions for the API
type Composer interface {
	Compose(ctx context.Context, req pipeline.Request) (*composition.Composition, error)
	ComposeProse(ctx context.Context, id string, prose analysis.Prose, neighbors map[int][]string) (*composition.Composition, error)
}

// Config holds server configuration
type Config struct {
	Port       int
	Retention  time.Duration
	MaxStored  int
	Quantize   int // Strudel steps per bar
	ComposeTTL time.Duration
}

// Server is the HTTP server
type Server struct {
	config   Config
	router   *chi.Mux
	logger   *slog.Logger
	composer Composer
	store    *Store
}

// New creates a new server
func New(cfg Config, composer Composer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if cfg.Quantize <= 0 {
		cfg.Quantize = 16
	}
	if cfg.ComposeTTL <= 0 {
		cfg.ComposeTTL = 30 * time.Second
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		composer: composer,
		store:    NewStore(cfg.Retention, cfg.MaxStored),
	}

	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	// API
	r.Post("/compose", s.handleCompose)
	r.Get("/compositions/{id}", s.handleComposition)
	r.Get("/compositions/{id}/midi", s.handleDownloadMIDI)
	r.Get("/compositions/{id}/strudel", s.handleStrudel)
}

// Run starts the server and blocks until SIGINT or SIGTERM
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.config.ComposeTTL + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		s.logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	s.logger.Info("server starting", slog.Int("port", s.config.Port))
	fmt.Printf("\n  sonigraph API running at: http://localhost:%d\n\n", s.config.Port)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	<-done
	return nil
}
