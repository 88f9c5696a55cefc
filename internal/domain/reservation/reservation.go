package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents reservation status.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusPending           Status = "PENDING"
	StatusAccepted          Status = "ACCEPTED"
	StatusRefused           Status = "REFUSED"
	StatusContractGenerated Status = "CONTRACT_GENERATED"
	StatusContractSigned    Status = "CONTRACT_SIGNED"
)

// Decision is the landlord's answer to a reservation.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionRefuse Decision = "REFUSE"
)

var ErrInvalidTransition = errors.New("invalid reservation status transition")

var transitions = map[Status][]Status{
	StatusDraft:             {StatusPending},
	StatusPending:           {StatusAccepted, StatusRefused},
	StatusAccepted:          {StatusContractGenerated},
	StatusRefused:           {},
	StatusContractGenerated: {StatusContractSigned},
	StatusContractSigned:    {},
}

// Reservation is a tenancy request for a property.
type Reservation struct {
	ID            int64      `json:"id"`
	ReservationID uuid.UUID  `json:"reservationId"`
	PropertyID    uuid.UUID  `json:"propertyId"`
	TenantID      string     `json:"tenantId"`
	LandlordID    string     `json:"landlordId"`
	VisitID       *uuid.UUID `json:"visitId,omitempty"`
	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	Occupants     int        `json:"occupants"`
	MonthlyIncome int64      `json:"monthlyIncome"`
	MonthlyRent   int64      `json:"monthlyRent"`
	HasGuarantor  bool       `json:"hasGuarantor"`
	Status        Status     `json:"status"`
	RefusalReason *string    `json:"refusalReason,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	SignedAt      *time.Time `json:"signedAt,omitempty"`
}

// ValidStatus returns true if s is a known reservation status.
func ValidStatus(s string) bool {
	_, ok := transitions[Status(s)]
	return ok
}

// CanTransitionTo validates reservation status transition.
func (r *Reservation) CanTransitionTo(target Status) bool {
	for _, s := range transitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (r *Reservation) IsTerminal() bool {
	return len(transitions[r.Status]) == 0
}

// IsOpen reports whether the reservation blocks a new submission for the same pair.
func (r *Reservation) IsOpen() bool {
	switch r.Status {
	case StatusPending, StatusAccepted, StatusContractGenerated:
		return true
	}
	return false
}

// Submit moves a draft to pending.
func (r *Reservation) Submit(now time.Time) error {
	return r.transition(StatusPending, now)
}

// Decide applies the landlord's decision.
func (r *Reservation) Decide(d Decision, reason *string, now time.Time) error {
	target := StatusAccepted
	if d == DecisionRefuse {
		target = StatusRefused
	}
	if err := r.transition(target, now); err != nil {
		return err
	}
	at := r.UpdatedAt
	r.DecidedAt = &at
	if target == StatusRefused {
		r.RefusalReason = reason
	}
	return nil
}

// MarkContractGenerated records that the contract document exists.
func (r *Reservation) MarkContractGenerated(now time.Time) error {
	return r.transition(StatusContractGenerated, now)
}

// MarkContractSigned records the tenant signature.
func (r *Reservation) MarkContractSigned(now time.Time) error {
	if err := r.transition(StatusContractSigned, now); err != nil {
		return err
	}
	at := r.UpdatedAt
	r.SignedAt = &at
	return nil
}

func (r *Reservation) transition(target Status, now time.Time) error {
	if !r.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	r.Status = target
	r.UpdatedAt = now.UTC()
	return nil
}
