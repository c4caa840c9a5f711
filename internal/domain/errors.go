package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling in the
// serving layer without switching on concrete types.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// ConflictError indicates a state conflict, e.g. a room whose lifecycle
	// status does not permit the requested operation.
	ConflictError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }
func (e *ConflictError) Error() string     { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }
func (e *ConflictError) StatusCode() int     { return http.StatusConflict }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Engine error kinds. These classify failures inside the turn engine; loop
// policy (render as tool-result error vs. abort the turn) is decided by the
// caller via errors.Is.
var (
	// ErrInvalidDiceFormula is returned by the dice engine on syntax or
	// range violations.
	ErrInvalidDiceFormula = errors.New("invalid dice formula")

	// ErrUnknownCharacter is returned by the check resolver when a
	// referenced character ID is not present in game state.
	ErrUnknownCharacter = errors.New("unknown character")

	// ErrInvalidToolArguments is returned when LLM-supplied tool arguments
	// fail schema validation.
	ErrInvalidToolArguments = errors.New("invalid tool arguments")

	// ErrLLMTransport wraps network or provider failures on an LLM call.
	ErrLLMTransport = errors.New("llm transport error")

	// ErrLLMTimeout marks an LLM call that exceeded its per-call deadline.
	ErrLLMTimeout = errors.New("llm timeout")

	// ErrContextBuild marks a failed context provider; the turn is aborted.
	ErrContextBuild = errors.New("context build failed")

	// ErrActionNotAllowed is returned when the current turn gate rejects
	// a player action.
	ErrActionNotAllowed = errors.New("action not allowed by turn gate")
)

// Is methods let the typed errors match their sentinels with errors.Is(),
// so the serving layer can map on sentinels alone.

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
