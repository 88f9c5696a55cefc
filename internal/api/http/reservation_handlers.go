package httpapi

import (
	"net/http"
	"strings"

	appBooking "github.com/rental-hub/rental-hub/internal/application/booking"
	"github.com/rental-hub/rental-hub/internal/domain/payment"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
)

func (s *Server) submitReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var req reservation.Input
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	res, err := s.bookingSvc.SubmitReservation(r.Context(), actor, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) listReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	var status *reservation.Status
	if v := r.URL.Query().Get("status"); v != "" {
		if !reservation.ValidStatus(strings.ToUpper(v)) {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid status")
			return
		}
		st := reservation.Status(strings.ToUpper(v))
		status = &st
	}
	asLandlord := r.URL.Query().Get("role") == "landlord"
	items, err := s.bookingSvc.ListReservations(r.Context(), actor, asLandlord, status, limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reservations": items})
}

func (s *Server) getReservation(w http.ResponseWriter, r *http.Request) {
	s.reservationTransition(w, r, s.bookingSvc.GetReservation)
}

func (s *Server) respondToReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "reservationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid reservationId")
		return
	}
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	decision := reservation.Decision(strings.ToUpper(req.Decision))
	if decision != reservation.DecisionAccept && decision != reservation.DecisionRefuse {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "decision must be ACCEPT or REFUSE")
		return
	}
	res, err := s.bookingSvc.RespondToReservation(r.Context(), actor, id, decision, req.Reason)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) generateContract(w http.ResponseWriter, r *http.Request) {
	s.reservationTransition(w, r, s.bookingSvc.GenerateContract)
}

func (s *Server) signContract(w http.ResponseWriter, r *http.Request) {
	s.reservationTransition(w, r, s.bookingSvc.SignContract)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "reservationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid reservationId")
		return
	}
	p, err := s.bookingSvc.GetPayment(r.Context(), actor, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "reservationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid reservationId")
		return
	}
	var req appBooking.CreatePaymentInput
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	req.Method = payment.Method(strings.ToUpper(string(req.Method)))
	p, err := s.bookingSvc.CreatePayment(r.Context(), actor, id, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) completePayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "paymentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid paymentId")
		return
	}
	p, err := s.bookingSvc.CompletePayment(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
