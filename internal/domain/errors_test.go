package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		status   int
	}{
		{"not found", &NotFoundError{Message: "room gone"}, ErrNotFound, http.StatusNotFound},
		{"validation", &ValidationError{Message: "bad input"}, ErrValidation, http.StatusBadRequest},
		{"unauthorized", &UnauthorizedError{Message: "no token"}, ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", &ForbiddenError{Message: "not yours"}, ErrForbidden, http.StatusForbidden},
		{"conflict", &ConflictError{Message: "already running"}, ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%T, sentinel) = false, want true", tt.err)
			}
			httpErr, ok := tt.err.(HTTPError)
			if !ok {
				t.Fatalf("%T does not implement HTTPError", tt.err)
			}
			if httpErr.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", httpErr.StatusCode(), tt.status)
			}

			// Wrapping must not break sentinel matching.
			wrapped := fmt.Errorf("handling request: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("wrapped errors.Is = false, want true")
			}
		})
	}
}

func TestTypedErrorsDoNotCrossMatch(t *testing.T) {
	if errors.Is(&NotFoundError{Message: "x"}, ErrConflict) {
		t.Error("NotFoundError matched ErrConflict")
	}
	if errors.Is(&ConflictError{Message: "x"}, ErrNotFound) {
		t.Error("ConflictError matched ErrNotFound")
	}
}
