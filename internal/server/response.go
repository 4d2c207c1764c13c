package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/alchemy/internal/shared"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an [ErrorResponse].
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Status: "error", Code: code, Message: message})
}

// StatusFor maps a sentinel error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrEngineNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, shared.ErrDuplicateEngine):
		return http.StatusConflict, "DUPLICATE_ENGINE"
	case errors.Is(err, shared.ErrReadOnlyEngine):
		return http.StatusConflict, "READ_ONLY_ENGINE"
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidDSN), errors.Is(err, shared.ErrUnsupportedDialect):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, shared.ErrConnectionFailed):
		return http.StatusBadGateway, "CONNECTION_FAILED"
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// WriteErr writes err with the status of [StatusFor].
func WriteErr(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	WriteError(w, status, code, err.Error())
}
