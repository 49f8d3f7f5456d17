package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/usermanager/internal/auth"
	"github.com/BradenHooton/usermanager/internal/handlers"
	middlewareCustom "github.com/BradenHooton/usermanager/internal/middleware"
	"github.com/BradenHooton/usermanager/internal/models"
	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config carries everything the HTTP surface is built from
type Config struct {
	AuthHandler  *handlers.AuthHandler
	AdminHandler *handlers.AdminHandler
	Tokens       auth.TokenValidator
	Access       auth.Authorizer
	Health       HealthChecker
	Logger       *slog.Logger
	IPConfig     *pkghttp.IPConfig

	Env                 string
	AllowedOrigins      []string
	LoginRequestsPerMin int
	RequestTimeout      time.Duration
}

// NewRouter builds the service router with the global middleware stack
func NewRouter(cfg Config) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(cfg.Logger, cfg.IPConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.Get("/health", healthHandler(cfg.Health))

	RegisterRoutes(router, cfg)

	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, cfg Config) {
	rateLimit := middlewareCustom.RateLimitByIP(middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.LoginRequestsPerMin,
		IPConfig:          cfg.IPConfig,
	})

	router.Route("/api/account", func(r chi.Router) {
		// Public routes - no authentication required
		r.With(rateLimit).Post("/login", cfg.AuthHandler.Login)
		r.With(rateLimit).Post("/register", cfg.AuthHandler.Register)

		r.With(auth.AuthMiddleware(cfg.Tokens)).Get("/refresh-user-token", cfg.AuthHandler.RefreshToken)
	})

	// Admin-only routes
	router.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(cfg.Tokens))
		r.Use(auth.RequireRole(cfg.Access, models.RoleAdmin))

		r.Get("/get-members", cfg.AdminHandler.GetMembers)
		r.Get("/get-member/{id}", cfg.AdminHandler.GetMember)
		r.Post("/add-edit-member", cfg.AdminHandler.AddEditMember)
		r.Put("/lock-member/{id}", cfg.AdminHandler.LockMember)
		r.Put("/unlock-member/{id}", cfg.AdminHandler.UnlockMember)
		r.Delete("/delete-member/{id}", cfg.AdminHandler.DeleteMember)
		r.Get("/get-application-roles", cfg.AdminHandler.GetApplicationRoles)
	})
}

func healthHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if health != nil {
			if err := health.HealthCheck(ctx); err != nil {
				pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
				return
			}
		}

		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}
