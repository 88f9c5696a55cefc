// Package booking implements the visit, reservation, payment and contract lifecycle.
// Every mutation runs under a per-record lock, is committed to the store, and only then
// produces chat messages, notifications, profile mirrors and audit entries.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rental-hub/rental-hub/internal/clock"
	"github.com/rental-hub/rental-hub/internal/domain/audit"
	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/domain/payment"
	"github.com/rental-hub/rental-hub/internal/domain/profile"
	"github.com/rental-hub/rental-hub/internal/domain/property"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

// DefaultTickBatch bounds the number of visits completed per tick.
const DefaultTickBatch = 500

// Notifier delivers notifications and chat messages once state is committed.
type Notifier interface {
	Dispatch(ctx context.Context, n *notification.Notification) error
	PostChat(ctx context.Context, msg *notification.ChatMessage) error
}

// AuditLogger records booking operations.
type AuditLogger interface {
	Log(ctx context.Context, entry *audit.AuditEntry)
}

// Service is the booking state machine.
type Service struct {
	visits       visit.Repository
	reservations reservation.Repository
	payments     payment.Repository
	properties   property.Lookup
	profiles     profile.Repository
	notifier     Notifier
	auditLog     AuditLogger
	clock        clock.Clock
	location     *time.Location
	logger       zerolog.Logger
	tracer       trace.Tracer
	locks        *lockSet
	tickBatch    int
}

// NewService creates the booking service. location is the fallback time zone for
// properties that do not declare one.
func NewService(
	visits visit.Repository,
	reservations reservation.Repository,
	payments payment.Repository,
	properties property.Lookup,
	profiles profile.Repository,
	notifier Notifier,
	auditLog AuditLogger,
	clk clock.Clock,
	location *time.Location,
	logger zerolog.Logger,
) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		visits:       visits,
		reservations: reservations,
		payments:     payments,
		properties:   properties,
		profiles:     profiles,
		notifier:     notifier,
		auditLog:     auditLog,
		clock:        clk,
		location:     location,
		logger:       logger.With().Str("service", "booking").Logger(),
		tracer:       otel.Tracer("rental-hub/booking"),
		locks:        newLockSet(),
		tickBatch:    DefaultTickBatch,
	}
}

// SetTickBatch overrides the number of visits completed per tick.
func (s *Service) SetTickBatch(n int) {
	if n > 0 {
		s.tickBatch = n
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) lookupProperty(ctx context.Context, propertyID uuid.UUID) (*property.Property, error) {
	p, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, booking.Precondition("property %s unavailable: %v", propertyID, err)
	}
	if p == nil {
		return nil, booking.Precondition("property %s not found", propertyID)
	}
	return p, nil
}

func invalidTransition(entity string, id uuid.UUID, from, to string) error {
	return &booking.InvalidTransitionError{Entity: entity, ID: id.String(), From: from, To: to}
}

// storeErr turns a lost optimistic race into an InvalidTransitionError.
func storeErr(err error, entity string, id uuid.UUID, from, to string) error {
	if errors.Is(err, booking.ErrVersionConflict) {
		return invalidTransition(entity, id, from, to)
	}
	return err
}

// notify and chat run after commit. A delivery failure never undoes the transition;
// the dispatcher logs it at warn and the debug line here ties it to this service's trace.
func (s *Service) notify(ctx context.Context, n *notification.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.Debug().Err(err).Str("type", string(n.Type)).Msg("notification not delivered")
	}
}

func (s *Service) chat(ctx context.Context, msg *notification.ChatMessage) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PostChat(ctx, msg); err != nil {
		s.logger.Debug().Err(err).Str("conversation_id", msg.ConversationID).Msg("chat message not delivered")
	}
}

func (s *Service) recordAudit(ctx context.Context, entity audit.EntityType, id uuid.UUID, action audit.Action, actor booking.Actor, from, to string, reason string) {
	if s.auditLog == nil {
		return
	}
	entry := &audit.AuditEntry{
		EntityType: entity,
		EntityID:   id.String(),
		Action:     action,
		Actor:      actor.ActorString(),
		NewValues:  map[string]string{"status": to},
		Reason:     reason,
	}
	if from != "" {
		entry.OldValues = map[string]string{"status": from}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		entry.TraceID = sc.TraceID().String()
	}
	s.auditLog.Log(ctx, entry)
}

// mirror copies the visit status onto both parties' profiles.
func (s *Service) mirror(ctx context.Context, v *visit.Visit) {
	if s.profiles == nil {
		return
	}
	for _, userID := range []string{v.RequesterID, v.OwnerID} {
		a := &profile.Activity{
			UserID:      userID,
			PropertyID:  v.PropertyID,
			VisitID:     v.VisitID,
			VisitStatus: v.Status,
			UpdatedAt:   v.UpdatedAt,
		}
		if err := s.profiles.Upsert(ctx, a); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("visit_id", v.VisitID.String()).Msg("failed to mirror visit status")
		}
	}
}

func payload(fields map[string]interface{}) json.RawMessage {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return data
}
