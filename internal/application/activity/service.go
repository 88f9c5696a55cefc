package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rental-hub/rental-hub/internal/domain/activity"
	"github.com/rental-hub/rental-hub/internal/domain/payment"
	"github.com/rental-hub/rental-hub/internal/domain/profile"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

// Service is the read-only progress aggregator. It holds no state of its own.
type Service struct {
	visits       visit.Repository
	reservations reservation.Repository
	payments     payment.Repository
	profiles     profile.Repository
	logger       zerolog.Logger
}

// NewService creates an activity service.
func NewService(
	visits visit.Repository,
	reservations reservation.Repository,
	payments payment.Repository,
	profiles profile.Repository,
	logger zerolog.Logger,
) *Service {
	return &Service{
		visits:       visits,
		reservations: reservations,
		payments:     payments,
		profiles:     profiles,
		logger:       logger.With().Str("service", "activity").Logger(),
	}
}

// Get loads the latest visit, reservation and payment of userID for propertyID and
// derives the current step and booking stage.
func (s *Service) Get(ctx context.Context, userID string, propertyID uuid.UUID) (*activity.Progress, error) {
	v, err := s.visits.LatestFor(ctx, userID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit: %w", err)
	}
	r, err := s.reservations.LatestFor(ctx, userID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	var p *payment.Payment
	if r != nil {
		p, err = s.payments.GetByReservation(ctx, r.ReservationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment: %w", err)
		}
	}
	progress := activity.Compute(userID, propertyID, v, r, p)
	s.logger.Debug().
		Str("user_id", userID).
		Str("property_id", propertyID.String()).
		Str("step", string(progress.CurrentStep)).
		Str("stage", string(progress.Stage)).
		Msg("activity computed")
	return progress, nil
}

// Profile returns the visit statuses mirrored on userID's profile.
func (s *Service) Profile(ctx context.Context, userID string, limit, offset int) ([]*profile.Activity, error) {
	items, err := s.profiles.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile activity: %w", err)
	}
	return items, nil
}
