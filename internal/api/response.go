package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/steveyegge/trackdash/internal/fetch"
	"github.com/steveyegge/trackdash/internal/types"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SendJSON writes data as a JSON response with the given status.
func SendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// SendError maps err to a status code and writes an ErrorResponse.
func SendError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, summary := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	SendJSON(w, status, ErrorResponse{Error: summary, Details: err.Error()})
}

// statusFor classifies err: malformed caller input is 400, a missing entity
// 404, and everything else (upstream, transport, configuration) 500.
func statusFor(err error) (int, string) {
	switch {
	case types.IsInputValidation(err):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, types.ErrNotFound), fetch.IsNotFound(err):
		return http.StatusNotFound, "not found"
	case types.IsConfiguration(err):
		return http.StatusInternalServerError, "service not configured"
	default:
		var ue *fetch.UpstreamError
		if errors.As(err, &ue) {
			return http.StatusInternalServerError, "upstream request failed"
		}
		return http.StatusInternalServerError, "internal error"
	}
}
