package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

// TickVisitClock completes every confirmed or active visit whose scheduled instant
// is at or before now. The check is level-triggered, so a missed tick is caught by the
// next one, and a visit already completed is left untouched.
func (s *Service) TickVisitClock(ctx context.Context, now time.Time) ([]*visit.Visit, error) {
	ctx, span := s.startSpan(ctx, "booking.tick_visit_clock", attribute.String("now", now.UTC().Format(time.RFC3339)))
	defer span.End()

	due, err := s.visits.ListDue(ctx, now, s.tickBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to list due visits: %w", err)
	}

	completed := make([]*visit.Visit, 0, len(due))
	for _, d := range due {
		v, from, ok, err := s.completeDue(ctx, d.VisitID, now)
		if err != nil {
			s.logger.Error().Err(err).Str("visit_id", d.VisitID.String()).Msg("failed to complete due visit")
			continue
		}
		if !ok {
			continue
		}
		s.afterCompletion(ctx, booking.System, v, from)
		completed = append(completed, v)
	}

	span.SetAttributes(attribute.Int("visits.due", len(due)), attribute.Int("visits.completed", len(completed)))
	if len(completed) > 0 {
		s.logger.Info().Int("completed", len(completed)).Time("now", now).Msg("visit clock tick")
	} else {
		s.logger.Debug().Int("due", len(due)).Time("now", now).Msg("visit clock tick")
	}
	return completed, nil
}

// completeDue re-reads the visit under its lock. ok is false when the visit was
// moved by another writer since it was listed.
func (s *Service) completeDue(ctx context.Context, visitID uuid.UUID, now time.Time) (*visit.Visit, visit.Status, bool, error) {
	unlock := s.locks.lock("visit:" + visitID.String())
	defer unlock()

	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, "", false, err
	}
	if v == nil || !v.IsDue(now) || !v.CanTransitionTo(visit.StatusCompleted) {
		return nil, "", false, nil
	}
	from := v.Status
	if err := v.Complete(now); err != nil {
		return nil, from, false, nil
	}
	if err := s.visits.Update(ctx, v); err != nil {
		if errors.Is(err, booking.ErrVersionConflict) {
			return nil, from, false, nil
		}
		return nil, from, false, err
	}
	s.logger.Info().
		Str("visit_id", v.VisitID.String()).
		Str("from", string(from)).
		Str("to", string(v.Status)).
		Msg("visit completed by clock")
	return v, from, true, nil
}
