package httpapi

import (
	"context"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
)

type authContextKey string

const authActorKey authContextKey = "actor"

func withActor(ctx context.Context, a booking.Actor) context.Context {
	return context.WithValue(ctx, authActorKey, a)
}

func actorFromContext(ctx context.Context) (booking.Actor, bool) {
	a, ok := ctx.Value(authActorKey).(booking.Actor)
	return a, ok
}
