package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/usermanager/internal/models"
	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// PrincipalContextKey is the key for storing the verified principal in context
	PrincipalContextKey contextKey = "principal"
)

// TokenValidator is satisfied by *TokenManager
type TokenValidator interface {
	Validate(tokenString string) (*models.Principal, error)
}

// Authorizer is satisfied by *AccessControl
type Authorizer interface {
	Authorize(principal *models.Principal, requiredRole string) error
}

// AuthMiddleware validates the bearer token and injects the principal into context
func AuthMiddleware(validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			// Parse Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			principal, err := validator.Validate(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects principals lacking role with 403. Must run after AuthMiddleware.
func RequireRole(authorizer Authorizer, role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipalFromContext(r)
			if principal == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			if err := authorizer.Authorize(principal, role); err != nil {
				pkghttp.WriteForbidden(w, "forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func WithPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

// GetPrincipalFromContext extracts the principal from request context
func GetPrincipalFromContext(r *http.Request) *models.Principal {
	principal, ok := r.Context().Value(PrincipalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
