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
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

const entityReservation = "reservation"

// SubmitReservation validates a tenancy request and sends it to the landlord.
// All rule violations are returned together in one *booking.ValidationError.
func (s *Service) SubmitReservation(ctx context.Context, actor booking.Actor, in reservation.Input) (*reservation.Reservation, error) {
	ctx, span := s.startSpan(ctx, "booking.submit_reservation",
		attribute.String("property.id", in.PropertyID.String()),
		attribute.String("actor", actor.UserID),
	)
	defer span.End()

	p, err := s.lookupProperty(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !p.Bookable() {
		return nil, booking.Precondition("property is %s and cannot be reserved", p.Status)
	}
	if p.OwnerID == actor.UserID {
		return nil, booking.Precondition("owners cannot reserve their own property")
	}
	if err := reservation.Validate(in, p).OrNil(); err != nil {
		span.SetAttributes(attribute.Bool("validation.failed", true))
		return nil, err
	}

	unlock := s.locks.lock("reservation-pair:" + actor.UserID + ":" + p.PropertyID.String())
	defer unlock()

	var visitID *uuid.UUID
	if !p.DirectBooking {
		completed := visit.StatusCompleted
		visits, err := s.visits.List(ctx, visit.Filter{PropertyID: &p.PropertyID, RequesterID: &actor.UserID, Status: &completed}, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to load visits: %w", err)
		}
		if len(visits) == 0 {
			return nil, booking.Precondition("a completed visit is required before reserving this property")
		}
		visitID = &visits[0].VisitID
	}

	existing, err := s.reservations.LatestFor(ctx, actor.UserID, p.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	if existing != nil && existing.IsOpen() {
		return nil, booking.Precondition("a %s reservation already exists for this property", existing.Status)
	}

	r := reservation.New(in, actor.UserID, p, visitID, s.clock.Now())
	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	s.logger.Info().
		Str("reservation_id", r.ReservationID.String()).
		Str("property_id", r.PropertyID.String()).
		Str("tenant", r.TenantID).
		Msg("reservation submitted")

	body := fmt.Sprintf("Reservation request from %s to %s for %d occupant(s)", r.StartDate, r.EndDate, r.Occupants)
	data := reservationPayload(r)
	s.chat(ctx, notification.NewChatMessage(r.PropertyID, r.TenantID, r.LandlordID, r.TenantID, notification.TypeBookingRequest, body, data))
	s.notify(ctx, notification.NewNotification(notification.TypeBookingRequest, r.LandlordID,
		"New reservation request", body, data, reservationActions(r.ReservationID)...))
	s.recordAudit(ctx, audit.EntityTypeReservation, r.ReservationID, audit.ActionCreate, actor, "", string(r.Status), "")
	return r, nil
}

// RespondToReservation applies the landlord's decision to a pending reservation.
func (s *Service) RespondToReservation(ctx context.Context, actor booking.Actor, reservationID uuid.UUID, decision reservation.Decision, reason *string) (*reservation.Reservation, error) {
	ctx, span := s.startSpan(ctx, "booking.respond_to_reservation",
		attribute.String("reservation.id", reservationID.String()),
		attribute.String("decision", string(decision)),
	)
	defer span.End()

	target := reservation.StatusAccepted
	switch decision {
	case reservation.DecisionAccept:
	case reservation.DecisionRefuse:
		target = reservation.StatusRefused
	default:
		verr := &booking.ValidationError{}
		verr.Add("decision", "enum", "decision must be ACCEPT or REFUSE")
		return nil, verr
	}

	r, from, err := s.mutateReservation(ctx, reservationID, target, func(r *reservation.Reservation) error {
		if r.LandlordID != actor.UserID {
			return booking.Precondition("only the landlord can respond to a reservation")
		}
		return r.Decide(decision, reason, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	action := audit.ActionApprove
	n := notification.NewNotification(notification.TypeBookingAccepted, r.TenantID,
		"Reservation accepted", "Your reservation was accepted. Proceed to payment.", reservationPayload(r))
	if decision == reservation.DecisionRefuse {
		action = audit.ActionReject
		msg := "Your reservation was declined."
		if reason != nil && *reason != "" {
			msg += " Reason: " + *reason
		}
		n = notification.NewNotification(notification.TypeBookingRefused, r.TenantID, "Reservation declined", msg, reservationPayload(r))
	}
	s.notify(ctx, n)
	auditReason := ""
	if reason != nil {
		auditReason = *reason
	}
	s.recordAudit(ctx, audit.EntityTypeReservation, r.ReservationID, action, actor, string(from), string(r.Status), auditReason)
	return r, nil
}

// GetReservation returns a reservation visible to actor.
func (s *Service) GetReservation(ctx context.Context, actor booking.Actor, reservationID uuid.UUID) (*reservation.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if r == nil || (r.TenantID != actor.UserID && r.LandlordID != actor.UserID) {
		return nil, booking.ErrNotFound
	}
	return r, nil
}

// ListReservations returns the reservations submitted by or addressed to actor.
func (s *Service) ListReservations(ctx context.Context, actor booking.Actor, asLandlord bool, status *reservation.Status, limit, offset int) ([]*reservation.Reservation, error) {
	filter := reservation.Filter{Status: status}
	if asLandlord {
		filter.LandlordID = &actor.UserID
	} else {
		filter.TenantID = &actor.UserID
	}
	items, err := s.reservations.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return items, nil
}

func (s *Service) mutateReservation(ctx context.Context, reservationID uuid.UUID, target reservation.Status, apply func(r *reservation.Reservation) error) (*reservation.Reservation, reservation.Status, error) {
	unlock := s.locks.lock("reservation:" + reservationID.String())
	defer unlock()

	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get reservation: %w", err)
	}
	if r == nil {
		return nil, "", booking.ErrNotFound
	}
	from := r.Status
	if err := apply(r); err != nil {
		if errors.Is(err, reservation.ErrInvalidTransition) {
			return nil, from, invalidTransition(entityReservation, reservationID, string(from), string(target))
		}
		return nil, from, err
	}
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, from, storeErr(err, entityReservation, reservationID, string(from), string(target))
	}
	s.logger.Info().
		Str("reservation_id", reservationID.String()).
		Str("from", string(from)).
		Str("to", string(r.Status)).
		Msg("reservation status changed")
	return r, from, nil
}

func reservationPayload(r *reservation.Reservation) []byte {
	return payload(map[string]interface{}{
		"reservationId": r.ReservationID.String(),
		"propertyId":    r.PropertyID.String(),
		"startDate":     r.StartDate,
		"endDate":       r.EndDate,
		"occupants":     r.Occupants,
		"monthlyRent":   r.MonthlyRent,
		"status":        r.Status,
	})
}

func reservationActions(reservationID uuid.UUID) []notification.Action {
	id := reservationID.String()
	return []notification.Action{
		{ID: "accept", Label: "Accept", Effect: notification.EffectReservationRespond, Params: map[string]string{"reservationId": id, "decision": string(reservation.DecisionAccept)}},
		{ID: "refuse", Label: "Refuse", Effect: notification.EffectReservationRespond, Params: map[string]string{"reservationId": id, "decision": string(reservation.DecisionRefuse)}},
	}
}
