// Package profile holds the informational copy of booking status shown on user profiles.
package profile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

// Activity mirrors the latest visit status of one user for one property.
type Activity struct {
	UserID      string       `json:"userId"`
	PropertyID  uuid.UUID    `json:"propertyId"`
	VisitID     uuid.UUID    `json:"visitId"`
	VisitStatus visit.Status `json:"visitStatus"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Repository stores profile activity rows keyed by (user, property).
type Repository interface {
	Upsert(ctx context.Context, a *Activity) error
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]*Activity, error)
}
