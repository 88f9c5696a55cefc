package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rental-hub/rental-hub/internal/domain/audit"
)

// getAuditHistory returns the audit trail of a visit or reservation the caller is
// party to. verify=true adds the signature check of every entry.
func (s *Server) getAuditHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := mustActor(w, r)
	if !ok {
		return
	}
	entityType := audit.EntityType(strings.ToUpper(chi.URLParam(r, "entityType")))
	id, err := uuid.Parse(chi.URLParam(r, "entityId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid entityId")
		return
	}
	switch entityType {
	case audit.EntityTypeVisit:
		_, err = s.bookingSvc.GetVisit(r.Context(), actor, id)
	case audit.EntityTypeReservation:
		_, err = s.bookingSvc.GetReservation(r.Context(), actor, id)
	default:
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "entityType must be VISIT or RESERVATION")
		return
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	logs, err := s.auditSvc.GetEntityHistory(r.Context(), entityType, id.String())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	resp := map[string]interface{}{"entries": logs}
	if r.URL.Query().Get("verify") == "true" {
		results, err := s.auditSvc.VerifyHistory(r.Context(), entityType, id.String())
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		resp["verification"] = results
	}
	respondJSON(w, http.StatusOK, resp)
}
