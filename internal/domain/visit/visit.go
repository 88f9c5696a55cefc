package visit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents visit status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Decision is the owner's answer to a visit request.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrInvalidTransition = errors.New("invalid visit status transition")
	ErrInvalidDate       = errors.New("invalid visit date (use YYYY-MM-DD)")
	ErrInvalidTime       = errors.New("invalid visit time (use HH:MM)")
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCompleted, StatusCancelled},
	StatusActive:    {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Visit is a scheduled in-person viewing of a property.
type Visit struct {
	ID            int64      `json:"id"`
	VisitID       uuid.UUID  `json:"visitId"`
	PropertyID    uuid.UUID  `json:"propertyId"`
	RequesterID   string     `json:"requesterId"`
	OwnerID       string     `json:"ownerId"`
	ScheduledDate string     `json:"scheduledDate"`
	ScheduledTime string     `json:"scheduledTime"`
	TimeZone      string     `json:"timeZone"`
	ScheduledAt   time.Time  `json:"scheduledAt"`
	Status        Status     `json:"status"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	RespondedAt   *time.Time `json:"respondedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy   *string    `json:"cancelledBy,omitempty"`
}

// ValidStatus returns true if s is a known visit status.
func ValidStatus(s string) bool {
	_, ok := transitions[Status(s)]
	return ok
}

// ResolveSchedule parses a local wall-clock date and time in loc and returns the instant.
func ResolveSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if _, err := time.Parse(TimeLayout, clock); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// New creates a pending visit.
func New(propertyID uuid.UUID, requesterID, ownerID, date, clock string, loc *time.Location, now time.Time) (*Visit, error) {
	at, err := ResolveSchedule(date, clock, loc)
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Visit{
		VisitID:       uuid.New(),
		PropertyID:    propertyID,
		RequesterID:   requesterID,
		OwnerID:       ownerID,
		ScheduledDate: date,
		ScheduledTime: clock,
		TimeZone:      loc.String(),
		ScheduledAt:   at,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanTransitionTo validates visit status transition.
func (v *Visit) CanTransitionTo(target Status) bool {
	for _, s := range transitions[v.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (v *Visit) IsTerminal() bool {
	return len(transitions[v.Status]) == 0
}

// IsOpen reports whether the visit still occupies the requester's slot for the property.
func (v *Visit) IsOpen() bool {
	return v.Status == StatusPending || v.Status == StatusConfirmed || v.Status == StatusActive
}

// IsDue reports whether the scheduled instant has passed.
func (v *Visit) IsDue(now time.Time) bool {
	return !v.ScheduledAt.After(now)
}

// Respond applies the owner's decision.
func (v *Visit) Respond(d Decision, now time.Time) error {
	target := StatusConfirmed
	if d == DecisionReject {
		target = StatusCancelled
	}
	if err := v.transition(target, now); err != nil {
		return err
	}
	at := v.UpdatedAt
	v.RespondedAt = &at
	if target == StatusCancelled {
		v.CancelledAt = &at
	}
	return nil
}

// Start marks the visit as in progress.
func (v *Visit) Start(now time.Time) error {
	return v.transition(StatusActive, now)
}

// Complete marks the visit as completed.
func (v *Visit) Complete(now time.Time) error {
	if err := v.transition(StatusCompleted, now); err != nil {
		return err
	}
	at := v.UpdatedAt
	v.CompletedAt = &at
	return nil
}

// Cancel cancels the visit on behalf of actor.
func (v *Visit) Cancel(actor string, now time.Time) error {
	if err := v.transition(StatusCancelled, now); err != nil {
		return err
	}
	at := v.UpdatedAt
	v.CancelledAt = &at
	v.CancelledBy = &actor
	return nil
}

func (v *Visit) transition(target Status, now time.Time) error {
	if !v.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	v.Status = target
	v.UpdatedAt = now.UTC()
	return nil
}

// Counterpart returns the other party of the visit.
func (v *Visit) Counterpart(userID string) string {
	if userID == v.OwnerID {
		return v.RequesterID
	}
	return v.OwnerID
}

// IsParty reports whether userID is the requester or the owner.
func (v *Visit) IsParty(userID string) bool {
	return userID == v.RequesterID || userID == v.OwnerID
}
