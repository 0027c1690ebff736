package server

import "net/http"

// listModels handles GET /api/v1/models.
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.AllModels())
}
