package httpapi

import (
	"errors"
	"net/http"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

// StaleMessage is shown when the user acted on an outdated view.
const StaleMessage = "this is no longer available, refresh"

func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := booking.AsValidation(err); ok {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "VALIDATION_FAILED",
			"message": verr.Error(),
			"fields":  verr.Fields,
		})
		return
	}
	var pre *booking.PreconditionError
	switch {
	case errors.As(err, &pre):
		respondError(w, http.StatusUnprocessableEntity, "PRECONDITION_FAILED", pre.Reason)
	case booking.IsInvalidTransition(err):
		respondError(w, http.StatusConflict, "STALE_STATE", StaleMessage)
	case errors.Is(err, notification.ErrAlreadyActed):
		respondError(w, http.StatusConflict, "ALREADY_ACTED", err.Error())
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, notification.ErrActionNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, notification.ErrNotRecipient):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, notification.ErrNoHandler):
		respondError(w, http.StatusUnprocessableEntity, "UNSUPPORTED_ACTION", err.Error())
	default:
		s.logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
