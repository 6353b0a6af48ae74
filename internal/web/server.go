// Package web serves the admin API and the kiosk display state.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/store"
	"github.com/lbansal/face-attendance/internal/web/handlers"
)

// Stores groups the storage interfaces the server needs. Events may be nil
// when the backend keeps no audit trail.
type Stores struct {
	Records  store.RecordWriter
	Subjects store.SubjectWriter
	Events   store.EventReader
}

// Server represents the web server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server. Signals and gallery may be nil for
// admin-only deployments without a running kiosk loop.
func NewServer(cfg *config.Config, stores Stores, signals handlers.SignalSource, gallery handlers.Gallery) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		router: r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	s.setupRoutes(stores, signals, gallery)

	s.httpServer = &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
