package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey   contextKey = "userID"
	usernameKey contextKey = "username"
)

// WithUser adds the authenticated identity to the request context.
func WithUser(r *http.Request, userID, username string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, usernameKey, username)
	return r.WithContext(ctx)
}

// GetUserID retrieves the user ID from context, empty string if not found.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// GetUsername retrieves the display name from context.
func GetUsername(r *http.Request) string {
	username, _ := r.Context().Value(usernameKey).(string)
	return username
}
