package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/gateway"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/relay"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// InitiateResponse is the body returned by POST /analysis.
type InitiateResponse struct {
	SessionID string `json:"sessionID"`
	Token     string `json:"token"`
	StreamURL string `json:"streamURL"`
}

// initiateAnalysis handles POST /api/v1/analysis.
func (s *Server) initiateAnalysis(w http.ResponseWriter, r *http.Request) {
	var query types.AnalysisQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	result, err := s.gateway.Initiate(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, InitiateResponse{
		SessionID: result.Session.ID,
		Token:     result.Token,
		StreamURL: fmt.Sprintf("/api/v1/analysis/stream/%s", result.Token),
	})
}

// streamAnalysis handles GET /api/v1/analysis/stream/{token}. The handle is
// single-use: once this response closes, for any reason, the token is dead.
func (s *Server) streamAnalysis(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	inv, err := s.gateway.Claim(token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.gateway.SetStatus(r.Context(), inv.SessionID, types.StatusStreaming); err != nil {
		logging.Warn().Err(err).Str("sessionID", inv.SessionID).Msg("mark streaming")
	}

	res := relay.Serve(w, r, inv)

	// The request context may already be cancelled (client gone); resolve
	// with a detached context so the outcome is still persisted.
	s.gateway.Resolve(detach(r), inv.SessionID, res)
}

// chat handles POST /api/v1/chat. The response body is itself the event
// stream; no separate handle is issued.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req gateway.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	inv, err := s.gateway.Chat(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if inv.SessionID != "" {
		if err := s.gateway.SetStatus(r.Context(), inv.SessionID, types.StatusStreaming); err != nil {
			logging.Warn().Err(err).Str("sessionID", inv.SessionID).Msg("mark streaming")
		}
	}

	res := relay.Serve(w, r, inv)
	s.gateway.Resolve(detach(r), inv.SessionID, res)
}
