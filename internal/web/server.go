// Package web exposes the daemon's control surface: register and delete
// subjects, read door status, and stream door events.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/access"
	"github.com/facegate/facegate/internal/gallery"
	"github.com/facegate/facegate/internal/monitor"
)

type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	monitor    *monitor.Monitor
	controller *access.Controller
	gallery    *gallery.Gallery
	log        zerolog.Logger
}

func NewServer(
	host string,
	port int,
	mon *monitor.Monitor,
	controller *access.Controller,
	g *gallery.Gallery,
	log zerolog.Logger,
) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:     r,
		monitor:    mon,
		controller: controller,
		gallery:    g,
		log:        log,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // long timeout for the SSE stream
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/subjects", s.handleListSubjects)
		r.Post("/subjects", s.handleRegister)
		r.Delete("/subjects/{name}", s.handleDelete)
		r.Get("/events", s.handleEvents)
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("web server started")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("starting web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
