package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appActivity "github.com/rental-hub/rental-hub/internal/application/activity"
	appAudit "github.com/rental-hub/rental-hub/internal/application/audit"
	appBooking "github.com/rental-hub/rental-hub/internal/application/booking"
	appNotification "github.com/rental-hub/rental-hub/internal/application/notification"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/domain/property"
	"github.com/rental-hub/rental-hub/internal/infrastructure/sse"
)

// ConversationReader lists the messages of a booking conversation.
type ConversationReader interface {
	ListConversation(ctx context.Context, conversationID string, limit, offset int) ([]*notification.ChatMessage, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	bookingSvc    *appBooking.Service
	activitySvc   *appActivity.Service
	dispatcher    *appNotification.Dispatcher
	auditSvc      *appAudit.Service
	conversations ConversationReader
	properties    property.Repository
	sseHub        *sse.Hub
	logger        zerolog.Logger
}

func NewServer(
	bookingSvc *appBooking.Service,
	activitySvc *appActivity.Service,
	dispatcher *appNotification.Dispatcher,
	auditSvc *appAudit.Service,
	conversations ConversationReader,
	properties property.Repository,
	sseHub *sse.Hub,
	logger zerolog.Logger,
) *Server {
	return &Server{
		bookingSvc:    bookingSvc,
		activitySvc:   activitySvc,
		dispatcher:    dispatcher,
		auditSvc:      auditSvc,
		conversations: conversations,
		properties:    properties,
		sseHub:        sseHub,
		logger:        logger.With().Str("service", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		// Collaborator callbacks, authenticated at the gateway.
		r.Put("/properties/{propertyId}", s.upsertProperty)
		r.Post("/payments/{paymentId}/complete", s.completePayment)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Get("/notifications/sse", s.sseEndpoint)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Route("/visits", func(r chi.Router) {
					r.Post("/", s.requestVisit)
					r.Get("/", s.listVisits)
					r.Get("/{visitId}", s.getVisit)
					r.Post("/{visitId}/respond", s.respondToVisit)
					r.Post("/{visitId}/start", s.startVisit)
					r.Post("/{visitId}/complete", s.completeVisit)
					r.Post("/{visitId}/cancel", s.cancelVisit)
				})

				r.Route("/reservations", func(r chi.Router) {
					r.Post("/", s.submitReservation)
					r.Get("/", s.listReservations)
					r.Get("/{reservationId}", s.getReservation)
					r.Post("/{reservationId}/respond", s.respondToReservation)
					r.Get("/{reservationId}/payment", s.getPayment)
					r.Post("/{reservationId}/payments", s.createPayment)
					r.Post("/{reservationId}/contract/generate", s.generateContract)
					r.Post("/{reservationId}/contract/sign", s.signContract)
				})

				r.Get("/properties/{propertyId}/activity", s.getActivity)
				r.Get("/conversations/{conversationId}/messages", s.listConversation)

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", s.listNotifications)
					r.Post("/{notificationId}/read", s.markNotificationRead)
					r.Post("/{notificationId}/actions/{actionId}", s.invokeNotificationAction)
				})

				r.Get("/me/activity", s.myActivity)
				r.Get("/audit/{entityType}/{entityId}", s.getAuditHistory)
			})
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"sse_clients": s.sseHub.GetClientCount(),
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
