package http

import (
	"encoding/json"
	"net/http"
)

// FieldError is a single field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string       `json:"error"`             // Machine-readable error code
	Message string       `json:"message"`           // Human-readable message
	Details string       `json:"details,omitempty"` // Optional additional context
	Fields  []FieldError `json:"fields,omitempty"`
}

// WriteJSON encodes v with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message, Details: details})
}

// WriteValidationError writes a 400 carrying every failed field
func WriteValidationError(w http.ResponseWriter, message string, fields []FieldError) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_failed",
		Message: message,
		Fields:  fields,
	})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, "service_unavailable", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
