package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nanotrace/certification-backend/internal/http/response"
	"github.com/nanotrace/certification-backend/internal/service"
)

// writeServiceError maps service error kinds onto the HTTP contract. When
// hideForbidden is set an authorization failure is reported as not found.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, hideForbidden bool) {
	var throttled *service.ThrottledError
	switch {
	case errors.As(err, &throttled):
		seconds := int(throttled.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		response.Error(w, r, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many failed login attempts", map[string]int{"retry_after_seconds": seconds})
	case errors.Is(err, service.ErrValidation):
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, service.ErrAuthentication):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
	case errors.Is(err, service.ErrAuthorization):
		if hideForbidden {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
			return
		}
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Error(w, r, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, service.ErrConflict):
		response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, service.ErrStorageDisabled):
		response.Error(w, r, http.StatusServiceUnavailable, "STORAGE_DISABLED", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}
