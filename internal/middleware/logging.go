package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
	pkglogger "github.com/BradenHooton/usermanager/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// SecureLogger returns a middleware for logging HTTP requests. Query strings
// carrying credentials or search terms are redacted.
func SecureLogger(logger *slog.Logger, ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				if pkglogger.SensitiveQuery(r.URL.RawQuery) {
					path += "?[REDACTED]"
				} else {
					path += "?" + r.URL.RawQuery
				}
			}

			level := slog.LevelInfo
			if wrapped.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			logger.LogAttrs(context.Background(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", wrapped.Status()),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("remote_addr", pkghttp.ClientIP(r, ipConfig)),
			)
		})
	}
}
