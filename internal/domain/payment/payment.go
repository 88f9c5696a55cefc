package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents payment status.
type Status string

const (
	StatusNone      Status = "NONE"
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// Method is the payment instrument chosen by the tenant.
type Method string

const (
	MethodCard     Method = "CARD"
	MethodTransfer Method = "TRANSFER"
	MethodWallet   Method = "WALLET"
)

var (
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrInvalidAmount     = errors.New("payment amount must be positive")
	ErrInvalidMethod     = errors.New("unknown payment method")
)

var transitions = map[Status][]Status{
	StatusNone:      {StatusPending},
	StatusPending:   {StatusCompleted},
	StatusCompleted: {},
}

// ValidMethod returns true if m is a known payment method.
func ValidMethod(m string) bool {
	switch Method(m) {
	case MethodCard, MethodTransfer, MethodWallet:
		return true
	}
	return false
}

// Payment is the first rent/deposit payment attached to an accepted reservation.
type Payment struct {
	ID            int64      `json:"id"`
	PaymentID     uuid.UUID  `json:"paymentId"`
	ReservationID uuid.UUID  `json:"reservationId"`
	PayerID       string     `json:"payerId"`
	PayeeID       string     `json:"payeeId"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Method        Method     `json:"method"`
	Status        Status     `json:"status"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// New creates a pending payment.
func New(reservationID uuid.UUID, payerID, payeeID string, amount int64, currency string, method Method, now time.Time) (*Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !ValidMethod(string(method)) {
		return nil, ErrInvalidMethod
	}
	now = now.UTC()
	p := &Payment{
		PaymentID:     uuid.New(),
		ReservationID: reservationID,
		PayerID:       payerID,
		PayeeID:       payeeID,
		Amount:        amount,
		Currency:      currency,
		Method:        method,
		Status:        StatusNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.transition(StatusPending, now); err != nil {
		return nil, err
	}
	return p, nil
}

// CanTransitionTo validates payment status transition.
func (p *Payment) CanTransitionTo(target Status) bool {
	for _, s := range transitions[p.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Complete marks the payment as settled by the gateway.
func (p *Payment) Complete(now time.Time) error {
	if err := p.transition(StatusCompleted, now); err != nil {
		return err
	}
	at := p.UpdatedAt
	p.CompletedAt = &at
	return nil
}

func (p *Payment) transition(target Status, now time.Time) error {
	if !p.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	p.Status = target
	p.UpdatedAt = now.UTC()
	return nil
}

// Repository defines persistence for payments. Update enforces the version token.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID uuid.UUID) (*Payment, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*Payment, error)
}
