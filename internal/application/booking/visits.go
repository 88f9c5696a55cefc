package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rental-hub/rental-hub/internal/domain/audit"
	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

const entityVisit = "visit"

// RequestVisitInput is a visit request for a property at a local date and time.
type RequestVisitInput struct {
	PropertyID uuid.UUID `json:"propertyId"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}

// RequestVisit creates a pending visit and asks the owner to accept or reject it.
func (s *Service) RequestVisit(ctx context.Context, actor booking.Actor, in RequestVisitInput) (*visit.Visit, error) {
	ctx, span := s.startSpan(ctx, "booking.request_visit",
		attribute.String("property.id", in.PropertyID.String()),
		attribute.String("actor", actor.UserID),
	)
	defer span.End()

	p, err := s.lookupProperty(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !p.Bookable() {
		return nil, booking.Precondition("property is %s and cannot be visited", p.Status)
	}
	if p.OwnerID == actor.UserID {
		return nil, booking.Precondition("owners cannot request a visit to their own property")
	}
	loc, err := p.Location(s.location)
	if err != nil {
		return nil, booking.Precondition("property time zone %q is invalid", p.TimeZone)
	}

	now := s.clock.Now()
	v, err := visit.New(p.PropertyID, actor.UserID, p.OwnerID, in.Date, in.Time, loc, now)
	if err != nil {
		verr := &booking.ValidationError{}
		switch {
		case errors.Is(err, visit.ErrInvalidDate):
			verr.Add("date", "date_format", err.Error())
		case errors.Is(err, visit.ErrInvalidTime):
			verr.Add("time", "time_format", err.Error())
		default:
			verr.Add("date", "date_format", err.Error())
		}
		return nil, verr
	}
	if today := now.In(loc).Format(visit.DateLayout); in.Date < today {
		return nil, booking.Precondition("visit date %s is in the past", in.Date)
	}

	unlock := s.locks.lock("visit-pair:" + actor.UserID + ":" + p.PropertyID.String())
	existing, err := s.visits.LatestFor(ctx, actor.UserID, p.PropertyID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to load visits: %w", err)
	}
	if existing != nil && existing.IsOpen() {
		unlock()
		return nil, booking.Precondition("a %s visit already exists for this property", existing.Status)
	}
	if err := s.visits.Create(ctx, v); err != nil {
		unlock()
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}
	unlock()

	s.logger.Info().
		Str("visit_id", v.VisitID.String()).
		Str("property_id", v.PropertyID.String()).
		Str("requester", v.RequesterID).
		Time("scheduled_at", v.ScheduledAt).
		Msg("visit requested")

	body := fmt.Sprintf("Visit request for %s at %s", v.ScheduledDate, v.ScheduledTime)
	data := visitPayload(v)
	s.chat(ctx, notification.NewChatMessage(v.PropertyID, v.RequesterID, v.OwnerID, v.RequesterID, notification.TypeVisitRequest, body, data))
	s.notify(ctx, notification.NewNotification(notification.TypeVisitRequest, v.OwnerID,
		"New visit request", body, data, visitActions(v.VisitID)...))
	s.mirror(ctx, v)
	s.recordAudit(ctx, audit.EntityTypeVisit, v.VisitID, audit.ActionCreate, actor, "", string(v.Status), "")
	return v, nil
}

// RespondToVisit applies the owner's decision to a pending visit.
func (s *Service) RespondToVisit(ctx context.Context, actor booking.Actor, visitID uuid.UUID, decision visit.Decision) (*visit.Visit, error) {
	ctx, span := s.startSpan(ctx, "booking.respond_to_visit",
		attribute.String("visit.id", visitID.String()),
		attribute.String("decision", string(decision)),
	)
	defer span.End()

	target := visit.StatusConfirmed
	switch decision {
	case visit.DecisionAccept:
	case visit.DecisionReject:
		target = visit.StatusCancelled
	default:
		verr := &booking.ValidationError{}
		verr.Add("decision", "enum", "decision must be ACCEPT or REJECT")
		return nil, verr
	}

	v, from, err := s.mutateVisit(ctx, visitID, target, func(v *visit.Visit) error {
		if v.OwnerID != actor.UserID {
			return booking.Precondition("only the property owner can respond to a visit request")
		}
		if v.Status != visit.StatusPending {
			return invalidTransition(entityVisit, v.VisitID, string(v.Status), string(target))
		}
		return v.Respond(decision, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	action := audit.ActionApprove
	typ := notification.TypeVisitConfirmed
	title, msg := "Visit confirmed", fmt.Sprintf("Your visit on %s at %s was confirmed", v.ScheduledDate, v.ScheduledTime)
	if decision == visit.DecisionReject {
		action = audit.ActionReject
		typ = notification.TypeVisitRejected
		title, msg = "Visit declined", fmt.Sprintf("Your visit on %s at %s was declined", v.ScheduledDate, v.ScheduledTime)
	}
	s.mirror(ctx, v)
	s.notify(ctx, notification.NewNotification(typ, v.RequesterID, title, msg, visitPayload(v)))
	s.recordAudit(ctx, audit.EntityTypeVisit, v.VisitID, action, actor, string(from), string(v.Status), "")
	return v, nil
}

// StartVisit marks a confirmed visit as in progress.
func (s *Service) StartVisit(ctx context.Context, actor booking.Actor, visitID uuid.UUID) (*visit.Visit, error) {
	ctx, span := s.startSpan(ctx, "booking.start_visit", attribute.String("visit.id", visitID.String()))
	defer span.End()

	v, from, err := s.mutateVisit(ctx, visitID, visit.StatusActive, func(v *visit.Visit) error {
		if !v.IsParty(actor.UserID) {
			return booking.Precondition("only the visit parties can start it")
		}
		return v.Start(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, v)
	s.recordAudit(ctx, audit.EntityTypeVisit, v.VisitID, audit.ActionStart, actor, string(from), string(v.Status), "")
	return v, nil
}

// CompleteVisit marks a confirmed or active visit as completed. It shares the
// serialization point with TickVisitClock.
func (s *Service) CompleteVisit(ctx context.Context, actor booking.Actor, visitID uuid.UUID) (*visit.Visit, error) {
	ctx, span := s.startSpan(ctx, "booking.complete_visit", attribute.String("visit.id", visitID.String()))
	defer span.End()

	v, from, err := s.mutateVisit(ctx, visitID, visit.StatusCompleted, func(v *visit.Visit) error {
		if !actor.IsSystem() && !v.IsParty(actor.UserID) {
			return booking.Precondition("only the visit parties can complete it")
		}
		return v.Complete(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.afterCompletion(ctx, actor, v, from)
	return v, nil
}

// CancelVisit cancels a pending or confirmed visit on behalf of either party.
func (s *Service) CancelVisit(ctx context.Context, actor booking.Actor, visitID uuid.UUID) (*visit.Visit, error) {
	ctx, span := s.startSpan(ctx, "booking.cancel_visit", attribute.String("visit.id", visitID.String()))
	defer span.End()

	v, from, err := s.mutateVisit(ctx, visitID, visit.StatusCancelled, func(v *visit.Visit) error {
		if !v.IsParty(actor.UserID) {
			return booking.Precondition("only the visit parties can cancel it")
		}
		return v.Cancel(actor.ActorString(), s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, v)
	s.notify(ctx, notification.NewNotification(notification.TypeVisitCancelled, v.Counterpart(actor.UserID),
		"Visit cancelled", fmt.Sprintf("The visit on %s at %s was cancelled", v.ScheduledDate, v.ScheduledTime), visitPayload(v)))
	s.recordAudit(ctx, audit.EntityTypeVisit, v.VisitID, audit.ActionCancel, actor, string(from), string(v.Status), "")
	return v, nil
}

// GetVisit returns a visit visible to actor.
func (s *Service) GetVisit(ctx context.Context, actor booking.Actor, visitID uuid.UUID) (*visit.Visit, error) {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	if v == nil || !v.IsParty(actor.UserID) {
		return nil, booking.ErrNotFound
	}
	return v, nil
}

// ListVisits returns the visits requested by or addressed to actor.
func (s *Service) ListVisits(ctx context.Context, actor booking.Actor, asOwner bool, status *visit.Status, limit, offset int) ([]*visit.Visit, error) {
	filter := visit.Filter{Status: status}
	if asOwner {
		filter.OwnerID = &actor.UserID
	} else {
		filter.RequesterID = &actor.UserID
	}
	items, err := s.visits.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return items, nil
}

// mutateVisit runs apply on the stored visit under its lock and commits the result.
// apply returns visit.ErrInvalidTransition for illegal edges.
func (s *Service) mutateVisit(ctx context.Context, visitID uuid.UUID, target visit.Status, apply func(v *visit.Visit) error) (*visit.Visit, visit.Status, error) {
	unlock := s.locks.lock("visit:" + visitID.String())
	defer unlock()

	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get visit: %w", err)
	}
	if v == nil {
		return nil, "", booking.ErrNotFound
	}
	from := v.Status
	if err := apply(v); err != nil {
		if errors.Is(err, visit.ErrInvalidTransition) {
			return nil, from, invalidTransition(entityVisit, visitID, string(from), string(target))
		}
		return nil, from, err
	}
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, from, storeErr(err, entityVisit, visitID, string(from), string(target))
	}
	s.logger.Info().
		Str("visit_id", visitID.String()).
		Str("from", string(from)).
		Str("to", string(v.Status)).
		Msg("visit status changed")
	return v, from, nil
}

func (s *Service) afterCompletion(ctx context.Context, actor booking.Actor, v *visit.Visit, from visit.Status) {
	s.mirror(ctx, v)
	s.notify(ctx, notification.NewNotification(notification.TypeVisitCompleted, v.RequesterID,
		"Visit completed", "Your visit has taken place. You may now book this property.", visitPayload(v)))
	s.recordAudit(ctx, audit.EntityTypeVisit, v.VisitID, audit.ActionComplete, actor, string(from), string(v.Status), "")
}

func visitPayload(v *visit.Visit) []byte {
	return payload(map[string]interface{}{
		"visitId":       v.VisitID.String(),
		"propertyId":    v.PropertyID.String(),
		"scheduledDate": v.ScheduledDate,
		"scheduledTime": v.ScheduledTime,
		"timeZone":      v.TimeZone,
		"status":        v.Status,
	})
}

func visitActions(visitID uuid.UUID) []notification.Action {
	id := visitID.String()
	return []notification.Action{
		{ID: "accept", Label: "Accept", Effect: notification.EffectVisitRespond, Params: map[string]string{"visitId": id, "decision": string(visit.DecisionAccept)}},
		{ID: "reject", Label: "Reject", Effect: notification.EffectVisitRespond, Params: map[string]string{"visitId": id, "decision": string(visit.DecisionReject)}},
	}
}
