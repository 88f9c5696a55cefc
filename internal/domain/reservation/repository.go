package reservation

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls reservation listing.
type Filter struct {
	PropertyID *uuid.UUID
	TenantID   *string
	LandlordID *string
	Status     *Status
}

// Repository defines persistence for reservations. Update enforces the version token.
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, reservationID uuid.UUID) (*Reservation, error)
	LatestFor(ctx context.Context, tenantID string, propertyID uuid.UUID) (*Reservation, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Reservation, error)
}
