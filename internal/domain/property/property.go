// Package property holds the property snapshot the booking core reads from the
// listings collaborator.
package property

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status represents the listing status of a property.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusSold      Status = "SOLD"
	StatusRented    Status = "RENTED"
	StatusDeleted   Status = "DELETED"
)

// ValidStatus returns true if s is a known property status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusAvailable, StatusSold, StatusRented, StatusDeleted:
		return true
	}
	return false
}

// Property is the subset of listing data the booking core depends on.
type Property struct {
	PropertyID      uuid.UUID `json:"propertyId"`
	OwnerID         string    `json:"ownerId"`
	Status          Status    `json:"status"`
	MaxOccupants    int       `json:"maxOccupants"`
	MonthlyRent     int64     `json:"monthlyRent"`
	DirectBooking   bool      `json:"directBooking"`
	TimeZone        string    `json:"timeZone,omitempty"`
	EligibilityRule string    `json:"eligibilityRule,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Bookable reports whether visits and reservations may be requested.
func (p *Property) Bookable() bool {
	return p.Status == StatusAvailable
}

// Location resolves the property time zone, falling back to def.
func (p *Property) Location(def *time.Location) (*time.Location, error) {
	if p.TimeZone == "" {
		return def, nil
	}
	return time.LoadLocation(p.TimeZone)
}

// Lookup reads property snapshots.
type Lookup interface {
	GetProperty(ctx context.Context, propertyID uuid.UUID) (*Property, error)
}

// Repository stores property snapshots synced from the listings service.
type Repository interface {
	Lookup
	Upsert(ctx context.Context, p *Property) error
}
