package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"tavern/internal/domain"
	"tavern/internal/httputil"
)

// respondDomainError maps domain errors to problem+json responses.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrActionNotAllowed):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	default:
		logger.Error("unexpected handler error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
