package visit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter controls visit listing.
type Filter struct {
	PropertyID  *uuid.UUID
	RequesterID *string
	OwnerID     *string
	Status      *Status
}

// Repository defines persistence for visits.
//
// Update must fail with booking.ErrVersionConflict when v.Version does not match the
// stored version, and increments v.Version on success.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	Update(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, visitID uuid.UUID) (*Visit, error)
	LatestFor(ctx context.Context, requesterID string, propertyID uuid.UUID) (*Visit, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Visit, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Visit, error)
}
