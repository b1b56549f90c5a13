package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mindbreaker/mindbreaker/internal/api/middleware"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// Client-facing messages for errors that carry no message of their own
const (
	MsgUnauthorized = "Unauthorized"
	MsgForbidden    = "Forbidden"
	MsgNotFound     = "Not found"
	MsgConflict     = "The record was changed by another request"
	MsgInvalidBody  = "Invalid request body"
	MsgInvalidID    = "Invalid id"
	MsgInvalidLimit = "limit must be a positive integer"
)

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a completed mutation
type SuccessResponse struct {
	Success bool `json:"success"`
}

// StatusFor maps an error to its HTTP status and client message.
// Unclassified errors are reported as 500 with their own text.
func StatusFor(err error) (int, string) {
	var input *domain.InputError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, MsgUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, MsgForbidden
	case errors.As(err, &input):
		return http.StatusBadRequest, input.Message
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case domain.IsNotFound(err):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, MsgConflict
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// WriteError maps err to a response and logs it with request context
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)

	logAttrs := []any{
		"status", status,
		"error", err.Error(),
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
	}

	// Log at appropriate level based on status code
	if status >= 500 {
		slog.Error("api error", logAttrs...)
	} else {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess acknowledges a mutation
func writeSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
