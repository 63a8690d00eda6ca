// Package server exposes the trigger over HTTP for local runs and
// container deployments.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dwsmith1983/jobtrigger/internal/handler"
)

// DefaultMaxBody caps trigger request bodies.
const DefaultMaxBody = 1 << 20

// Server is the trigger HTTP server.
type Server struct {
	handler *handler.Handler
	logger  *slog.Logger
	router  chi.Router
	addr    string
	srv     *http.Server
}

// New creates a new HTTP server. An empty apiKey disables authentication and
// a non-positive maxBody selects DefaultMaxBody.
func New(addr string, h *handler.Handler, logger *slog.Logger, apiKey string, maxBody int64) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	s := &Server{
		handler: h,
		logger:  logger,
		addr:    addr,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))
	r.Use(APIKeyMiddleware(apiKey))
	r.Use(MaxBodyMiddleware(maxBody))

	s.router = r
	s.registerRoutes(r)
	return s
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "jobtrigger.http")
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info("trigger server listening", "addr", s.addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
