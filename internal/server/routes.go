package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/dwsmith1983/jobtrigger/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.handler)
	h.SetLogger(s.logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/trigger", h.Trigger)
	})
}
