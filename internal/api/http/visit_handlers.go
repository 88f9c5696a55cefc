package httpapi

import (
	"net/http"
	"strings"

	appBooking "github.com/rental-hub/rental-hub/internal/application/booking"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

type decisionRequest struct {
	Decision string  `json:"decision"`
	Reason   *string `json:"reason,omitempty"`
}

func (s *Server) requestVisit(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	var req appBooking.RequestVisitInput
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	v, err := s.bookingSvc.RequestVisit(r.Context(), actor, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) listVisits(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	var status *visit.Status
	if v := r.URL.Query().Get("status"); v != "" {
		if !visit.ValidStatus(strings.ToUpper(v)) {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid status")
			return
		}
		st := visit.Status(strings.ToUpper(v))
		status = &st
	}
	asOwner := r.URL.Query().Get("role") == "owner"
	items, err := s.bookingSvc.ListVisits(r.Context(), actor, asOwner, status, limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"visits": items})
}

func (s *Server) getVisit(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "visitId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid visitId")
		return
	}
	v, err := s.bookingSvc.GetVisit(r.Context(), actor, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) respondToVisit(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "visitId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid visitId")
		return
	}
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	v, err := s.bookingSvc.RespondToVisit(r.Context(), actor, id, visit.Decision(strings.ToUpper(req.Decision)))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) startVisit(w http.ResponseWriter, r *http.Request) {
	s.visitTransition(w, r, s.bookingSvc.StartVisit)
}

func (s *Server) completeVisit(w http.ResponseWriter, r *http.Request) {
	s.visitTransition(w, r, s.bookingSvc.CompleteVisit)
}

func (s *Server) cancelVisit(w http.ResponseWriter, r *http.Request) {
	s.visitTransition(w, r, s.bookingSvc.CancelVisit)
}
