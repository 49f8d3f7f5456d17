package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("you have been locked out")
	ErrDuplicateEmail     = errors.New("an account with this email already exists")

	// Administration errors
	ErrSuperAdminProtected = errors.New("super admin change is not allowed")

	// Infrastructure errors
	ErrConfiguration    = errors.New("invalid configuration")
	ErrSigning          = errors.New("failed to sign token")
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
)

// LockedOutError is returned when a login is rejected because the account is locked
type LockedOutError struct {
	Until time.Time
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("Your account has been locked. You should wait until %s (UTC time) to be able to login",
		e.Until.UTC().Format("2006-01-02 15:04:05"))
}

// FieldError is a single field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level messages for bad input
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field message
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
