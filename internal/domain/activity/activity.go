// Package activity derives a user's position in the booking flow for one property.
package activity

import (
	"github.com/google/uuid"

	"github.com/rental-hub/rental-hub/internal/domain/payment"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

// None marks a stage with no record yet.
const None = "NONE"

// Step is the earliest unsettled stage.
type Step string

const (
	StepVisit       Step = "visit"
	StepReservation Step = "reservation"
	StepPayment     Step = "payment"
	StepCompleted   Step = "completed"
)

// Stage is the booking screen a user is sent to.
type Stage string

const (
	StageVisit       Stage = "Visit"
	StageReservation Stage = "Reservation"
	StagePayment     Stage = "Payment"
)

// Progress is the read-only view over the visit, reservation and payment of one
// (user, property) pair.
type Progress struct {
	PropertyID        uuid.UUID          `json:"propertyId"`
	UserID            string             `json:"userId"`
	VisitStatus       visit.Status       `json:"visitStatus"`
	ReservationStatus reservation.Status `json:"reservationStatus"`
	PaymentStatus     payment.Status     `json:"paymentStatus"`
	CurrentStep       Step               `json:"currentStep"`
	Stage             Stage              `json:"stage"`
}

// Compute builds Progress from the latest records; any of them may be nil.
func Compute(userID string, propertyID uuid.UUID, v *visit.Visit, r *reservation.Reservation, p *payment.Payment) *Progress {
	pr := &Progress{
		PropertyID:        propertyID,
		UserID:            userID,
		VisitStatus:       visit.Status(None),
		ReservationStatus: reservation.Status(None),
		PaymentStatus:     payment.StatusNone,
	}
	if v != nil {
		pr.VisitStatus = v.Status
	}
	if r != nil {
		pr.ReservationStatus = r.Status
	}
	if p != nil {
		pr.PaymentStatus = p.Status
	}
	pr.CurrentStep = currentStep(pr)
	pr.Stage = Route(pr)
	return pr
}

// A visit is settled once completed, or skipped when a reservation already exists
// (direct booking). A reservation is settled once the landlord accepted it.
func currentStep(p *Progress) Step {
	hasReservation := p.ReservationStatus != reservation.Status(None)
	visitSettled := p.VisitStatus == visit.StatusCompleted || (p.VisitStatus == visit.Status(None) && hasReservation)
	if !visitSettled && !hasReservation {
		return StepVisit
	}
	switch p.ReservationStatus {
	case reservation.StatusAccepted, reservation.StatusContractGenerated, reservation.StatusContractSigned:
	default:
		return StepReservation
	}
	if p.PaymentStatus != payment.StatusCompleted {
		return StepPayment
	}
	return StepCompleted
}

// Route decides the next booking screen. A reservation, once initiated, always
// dominates the visit: a refused reservation routes back to Reservation, never Visit.
// An accepted visit moves on to Reservation only once COMPLETED, since submission
// requires a completed visit; a CONFIRMED or ACTIVE visit stays on Visit.
func Route(p *Progress) Stage {
	switch p.ReservationStatus {
	case reservation.StatusAccepted, reservation.StatusContractGenerated, reservation.StatusContractSigned:
		return StagePayment
	case reservation.StatusPending, reservation.StatusDraft, reservation.StatusRefused:
		return StageReservation
	}
	switch p.VisitStatus {
	case visit.StatusCompleted:
		return StageReservation
	case visit.StatusPending, visit.StatusConfirmed, visit.StatusActive:
		return StageVisit
	}
	return StageVisit
}
