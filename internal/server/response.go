package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/gateway"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/storage"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeHandleUsed     = "HANDLE_USED"
	ErrCodeProviderError  = "PROVIDER_ERROR"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// writeDomainError maps gateway errors onto HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	var validation *types.ValidationError
	var gatewayErr *types.GatewayError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, validation.Reason)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
	case errors.Is(err, gateway.ErrHandleUnknown):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "unknown stream handle")
	case errors.Is(err, gateway.ErrHandleUsed):
		writeError(w, http.StatusConflict, ErrCodeHandleUsed, "stream handle already consumed")
	case errors.As(err, &gatewayErr):
		writeError(w, http.StatusBadGateway, ErrCodeProviderError, gatewayErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
