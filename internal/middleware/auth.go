package middleware

import (
	"net/http"
	"strings"

	"tavern/internal/auth"
	"tavern/internal/httputil"
)

// publicPaths are reachable without a token.
var publicPaths = map[string]bool{
	"/health": true,
}

// Auth validates the Bearer token and stores the caller's identity in the
// request context. A nil verifier enables dev mode: identity comes from the
// X-User-ID / X-Username headers instead.
func Auth(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if verifier == nil {
				userID := r.Header.Get("X-User-ID")
				if userID == "" {
					httputil.RespondError(w, http.StatusUnauthorized, "X-User-ID header required")
					return
				}
				username := r.Header.Get("X-Username")
				if username == "" {
					username = userID
				}
				next.ServeHTTP(w, httputil.WithUser(r, userID, username))
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			username := claims.Username
			if username == "" {
				username = claims.Email
			}
			next.ServeHTTP(w, httputil.WithUser(r, claims.Subject, username))
		})
	}
}
