package devserver

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the HTTP surface the client adapter talks to.
func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Post("/api/sessions", s.createSession)
	router.Patch("/api/sessions/{sessionID}/status", s.updateSessionStatus)
	router.Post("/api/sessions/{sessionID}/lines", s.createCountLine)
	router.Put("/api/count-lines/{lineID}", s.updateCountLine)
	router.Post("/api/unknown-items", s.createUnknownItem)
	router.Get("/api/items/search", s.searchItems)

	return router
}
