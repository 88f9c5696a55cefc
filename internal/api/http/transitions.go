package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

func (s *Server) visitTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, booking.Actor, uuid.UUID) (*visit.Visit, error)) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "visitId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid visitId")
		return
	}
	v, err := op(r.Context(), actor, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) reservationTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, booking.Actor, uuid.UUID) (*reservation.Reservation, error)) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "reservationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid reservationId")
		return
	}
	res, err := op(r.Context(), actor, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
