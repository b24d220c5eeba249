package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nubra-ai/nubra-chat/internal/completion"
	"github.com/nubra-ai/nubra-chat/internal/session"
)

// Machine-readable error codes surfaced to clients.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeUnsafeInput          = "UNSAFE_INPUT"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeSessionAlreadyExists = "SESSION_ALREADY_EXISTS"
	CodeChatFailed           = "CHAT_FAILED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader there is no way to notify the client;
// the error is logged and the connection is left as-is.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{ErrorCode: code, Message: message})
}

// mapError converts a domain error into its HTTP status and error code.
// Unrecognized errors become an opaque 500 so upstream detail never leaks.
func mapError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, session.ErrInvalidID):
		return http.StatusBadRequest, CodeValidationError, err.Error()
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, CodeSessionNotFound, err.Error()
	case errors.Is(err, session.ErrAlreadyExists):
		return http.StatusConflict, CodeSessionAlreadyExists, err.Error()
	case errors.Is(err, completion.ErrCompletionFailed):
		return http.StatusInternalServerError, CodeChatFailed, "chat completion failed"
	default:
		return http.StatusInternalServerError, CodeInternalError, "internal server error"
	}
}
