package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

// HandleAction resolves an inline notification action into the matching operation.
func (s *Service) HandleAction(ctx context.Context, actor booking.Actor, action notification.Action) error {
	switch action.Effect {
	case notification.EffectVisitRespond:
		id, err := actionID(action, "visitId")
		if err != nil {
			return err
		}
		_, err = s.RespondToVisit(ctx, actor, id, visit.Decision(action.Params["decision"]))
		return err
	case notification.EffectReservationRespond:
		id, err := actionID(action, "reservationId")
		if err != nil {
			return err
		}
		_, err = s.RespondToReservation(ctx, actor, id, reservation.Decision(action.Params["decision"]), nil)
		return err
	default:
		return fmt.Errorf("%w: %s", notification.ErrNoHandler, action.Effect)
	}
}

func actionID(action notification.Action, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(action.Params[key])
	if err != nil {
		return uuid.Nil, booking.Precondition("action %s has an invalid %s", action.ID, key)
	}
	return id, nil
}
