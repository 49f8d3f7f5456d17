package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/usermanager/internal/models"
	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
)

// writeServiceError maps service errors onto HTTP responses. Unexpected
// errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *models.ValidationError
	var locked *models.LockedOutError

	switch {
	case errors.As(err, &verr):
		fields := make([]pkghttp.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, pkghttp.FieldError{Field: f.Field, Message: f.Message})
		}
		pkghttp.WriteValidationError(w, "Validation failed", fields)
	case errors.As(err, &locked):
		pkghttp.WriteUnauthorized(w, locked.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid username or password")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteUnauthorized(w, "You have been locked out")
	case errors.Is(err, models.ErrSuperAdminProtected):
		pkghttp.WriteBadRequest(w, "Super Admin change is not allowed!")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient permissions")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Member not found")
	case errors.Is(err, models.ErrDuplicateEmail):
		pkghttp.WriteBadRequest(w, "An account with this email already exists")
	case errors.Is(err, models.ErrStoreUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable, please retry")
	default:
		if logger != nil {
			logger.Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
		}
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
