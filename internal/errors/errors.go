// Package errors defines the structured API error responses rendered by the
// HTTP layer.
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is a structured API error response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails creates an APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

// Predefined errors for common cases.
var (
	ErrInvalidRequest = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrUnauthorized   = New(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	ErrForbidden      = New(http.StatusForbidden, "FORBIDDEN", "Access denied")
	ErrNotFound       = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrConflict       = New(http.StatusConflict, "CONFLICT", "Resource conflict")
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// BadRequest creates a 400 error with a specific message.
func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

// Unauthorized creates a 401 error with a specific message.
func Unauthorized(message string) *APIError {
	return New(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// NotFound creates a 404 error with a specific message.
func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

// Conflict creates a 409 error with a specific message.
func Conflict(code, message string) *APIError {
	return New(http.StatusConflict, code, message)
}
