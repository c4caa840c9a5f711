package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"tavern/internal/httputil"
)

// Recovery converts handler panics into problem+json 500s. Runs inside Auth
// so the offending user, if any, makes it into the log line.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"user_id", httputil.GetUserID(r),
						"stack", string(debug.Stack()),
					)
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
