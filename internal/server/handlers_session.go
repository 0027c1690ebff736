package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// listSessions handles GET /api/v1/session.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.gateway.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// getSession handles GET /api/v1/session/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.gateway.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// deleteSession handles DELETE /api/v1/session/{sessionID}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// getMessages handles GET /api/v1/session/{sessionID}/messages.
func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.gateway.GetSession(r.Context(), sessionID); err != nil {
		writeDomainError(w, err)
		return
	}

	messages, err := s.gateway.Messages(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// detach returns a context that survives the request's cancellation, for
// persistence after a client disconnect.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
