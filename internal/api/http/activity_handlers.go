package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/domain/property"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
)

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	id, err := parseUUIDParam(r, "propertyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid propertyId")
		return
	}
	p, err := s.activitySvc.Get(r.Context(), actor.UserID, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) myActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	items, err := s.activitySvc.Profile(r.Context(), actor.UserID, limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"activity": items})
}

// listConversation returns a booking conversation the caller takes part in.
func (s *Server) listConversation(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(r, 100, 500)
	msgs, err := s.conversations.ListConversation(r.Context(), chi.URLParam(r, "conversationId"), limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	for _, m := range msgs {
		if m.SenderID != actor.UserID && m.RecipientID != actor.UserID {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "conversation not found")
			return
		}
	}
	if msgs == nil {
		msgs = []*notification.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

type propertyRequest struct {
	OwnerID         string `json:"ownerId"`
	Status          string `json:"status"`
	MaxOccupants    int    `json:"maxOccupants"`
	MonthlyRent     int64  `json:"monthlyRent"`
	DirectBooking   bool   `json:"directBooking"`
	TimeZone        string `json:"timeZone,omitempty"`
	EligibilityRule string `json:"eligibilityRule,omitempty"`
}

// upsertProperty syncs a listing snapshot from the listings service.
func (s *Server) upsertProperty(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "propertyId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid propertyId")
		return
	}
	var req propertyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.OwnerID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "ownerId required")
		return
	}
	if !property.ValidStatus(req.Status) {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid status")
		return
	}
	if req.MaxOccupants < 1 || req.MonthlyRent <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "maxOccupants and monthlyRent must be positive")
		return
	}
	p := &property.Property{
		PropertyID:      id,
		OwnerID:         req.OwnerID,
		Status:          property.Status(req.Status),
		MaxOccupants:    req.MaxOccupants,
		MonthlyRent:     req.MonthlyRent,
		DirectBooking:   req.DirectBooking,
		TimeZone:        req.TimeZone,
		EligibilityRule: req.EligibilityRule,
		UpdatedAt:       time.Now().UTC(),
	}
	if _, err := p.Location(time.UTC); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid timeZone")
		return
	}
	if p.EligibilityRule != "" {
		if _, err := reservation.EvaluateEligibility(p.EligibilityRule, reservation.Input{}, p); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid eligibilityRule: "+err.Error())
			return
		}
	}
	if err := s.properties.Upsert(r.Context(), p); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
