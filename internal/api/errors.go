package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/pawl-core/internal/auth"
	"github.com/nerrad567/pawl-core/internal/registry"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeConflict       = "conflict"
	ErrCodeGone           = "gone"
	ErrCodeInternal       = "internal_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeOK writes the plain success acknowledgement used by mutations.
func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps an auth or registry outcome to its status code.
// Anything unrecognised is a storage or internal failure: it is logged and
// reported as a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrConflict):
		writeError(w, http.StatusConflict, ErrCodeConflict, "record already exists")
	case errors.Is(err, registry.ErrGone):
		writeError(w, http.StatusGone, ErrCodeGone, "record does not exist")
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		writeUnauthorized(w, "unauthorised")
	case errors.Is(err, auth.ErrAPIKeyNotFound):
		writeNotFound(w, "not found")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeInternalError(w, "internal server error")
	}
}
