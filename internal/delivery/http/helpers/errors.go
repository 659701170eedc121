package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventadmission/internal/domain"
)

// WriteDomainError maps err to a status and error code. Expected registration outcomes are 4xx with
// the error's own message; anything else is logged and reported as 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, ErrCodeInternalError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrAlreadyRegistered):
		status, code = http.StatusUnprocessableEntity, ErrCodeAlreadyRegistered
	case errors.Is(err, domain.ErrRegistrationClosed):
		status, code = http.StatusUnprocessableEntity, ErrCodeRegistrationClosed
	case errors.Is(err, domain.ErrEventFull):
		status, code = http.StatusUnprocessableEntity, ErrCodeEventFull
	case errors.Is(err, domain.ErrCannotCancel):
		status, code = http.StatusUnprocessableEntity, ErrCodeCannotCancel
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = http.StatusUnprocessableEntity, ErrCodeInvalidTransition
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, ErrCodeBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, code, "internal server error")
		return
	}
	WriteJSONError(w, status, code, err.Error())
}
