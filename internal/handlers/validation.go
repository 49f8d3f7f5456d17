package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds request bodies read by decodeJSON
const maxBodyBytes = 1 << 20

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so clients can map messages to inputs
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest validates a request struct using go-playground/validator.
// Every failed field is reported in the returned *models.ValidationError.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validation failed: %w", err)
	}

	verr := &models.ValidationError{}
	for _, fieldError := range ve {
		verr.Add(fieldError.Field(), formatValidationError(fieldError))
	}
	return verr
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "uuid":
		return "must be a valid identifier"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// decodeJSON reads a single JSON object from the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
