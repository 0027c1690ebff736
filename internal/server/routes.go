package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		// Analysis
		r.Post("/analysis", s.initiateAnalysis)
		r.Get("/analysis/stream/{token}", s.streamAnalysis)

		// Follow-up chat; the response body is the event stream.
		r.Post("/chat", s.chat)

		// Model catalog
		r.Get("/models", s.listModels)

		// Sessions
		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Get("/messages", s.getMessages)
			})
		})

		// Auxiliary bus feed (SSE)
		r.Get("/event", s.busEvents)
	})
}
