package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rental-hub/rental-hub/internal/domain/audit"
	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/domain/payment"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
)

const (
	entityPayment   = "payment"
	DefaultCurrency = "EUR"
)

// CreatePaymentInput selects how the tenant pays. Amount defaults to one month of rent.
type CreatePaymentInput struct {
	Method   payment.Method `json:"method"`
	Amount   int64          `json:"amount,omitempty"`
	Currency string         `json:"currency,omitempty"`
}

// CreatePayment opens the payment of an accepted reservation.
func (s *Service) CreatePayment(ctx context.Context, actor booking.Actor, reservationID uuid.UUID, in CreatePaymentInput) (*payment.Payment, error) {
	ctx, span := s.startSpan(ctx, "booking.create_payment", attribute.String("reservation.id", reservationID.String()))
	defer span.End()

	unlock := s.locks.lock("reservation:" + reservationID.String())
	defer unlock()

	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if r == nil {
		return nil, booking.ErrNotFound
	}
	if r.TenantID != actor.UserID {
		return nil, booking.Precondition("only the tenant can pay for a reservation")
	}
	if r.Status != reservation.StatusAccepted {
		return nil, booking.Precondition("reservation is %s; payment requires an accepted reservation", r.Status)
	}
	existing, err := s.payments.GetByReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if existing != nil && existing.Status != payment.StatusNone {
		return nil, booking.Precondition("a %s payment already exists for this reservation", existing.Status)
	}

	amount := in.Amount
	if amount == 0 {
		amount = r.MonthlyRent
	}
	currency := in.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	p, err := payment.New(r.ReservationID, r.TenantID, r.LandlordID, amount, currency, in.Method, s.clock.Now())
	if err != nil {
		verr := &booking.ValidationError{}
		switch {
		case errors.Is(err, payment.ErrInvalidAmount):
			verr.Add("amount", "positive", err.Error())
		default:
			verr.Add("method", "enum", err.Error())
		}
		return nil, verr
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.Info().
		Str("payment_id", p.PaymentID.String()).
		Str("reservation_id", r.ReservationID.String()).
		Int64("amount", p.Amount).
		Msg("payment created")

	s.notify(ctx, notification.NewNotification(notification.TypePaymentPending, r.LandlordID,
		"Payment pending", fmt.Sprintf("The tenant started a payment of %d %s", p.Amount, p.Currency), paymentPayload(p)))
	s.recordAudit(ctx, audit.EntityTypePayment, p.PaymentID, audit.ActionCreate, actor, string(payment.StatusNone), string(p.Status), "")
	return p, nil
}

// CompletePayment records the gateway settlement of a pending payment.
func (s *Service) CompletePayment(ctx context.Context, paymentID uuid.UUID) (*payment.Payment, error) {
	ctx, span := s.startSpan(ctx, "booking.complete_payment", attribute.String("payment.id", paymentID.String()))
	defer span.End()

	unlock := s.locks.lock("payment:" + paymentID.String())
	defer unlock()

	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		return nil, booking.ErrNotFound
	}
	from := p.Status
	if err := p.Complete(s.clock.Now()); err != nil {
		return nil, invalidTransition(entityPayment, paymentID, string(from), string(payment.StatusCompleted))
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, storeErr(err, entityPayment, paymentID, string(from), string(payment.StatusCompleted))
	}

	s.logger.Info().Str("payment_id", paymentID.String()).Msg("payment completed")
	s.notify(ctx, notification.NewNotification(notification.TypePaymentReceived, p.PayeeID,
		"Payment received", fmt.Sprintf("A payment of %d %s was received", p.Amount, p.Currency), paymentPayload(p)))
	s.recordAudit(ctx, audit.EntityTypePayment, p.PaymentID, audit.ActionComplete, booking.System, string(from), string(p.Status), "")
	return p, nil
}

// GetPayment returns the payment of a reservation visible to actor.
func (s *Service) GetPayment(ctx context.Context, actor booking.Actor, reservationID uuid.UUID) (*payment.Payment, error) {
	p, err := s.payments.GetByReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil || (p.PayerID != actor.UserID && p.PayeeID != actor.UserID) {
		return nil, booking.ErrNotFound
	}
	return p, nil
}

// GenerateContract moves a paid reservation to CONTRACT_GENERATED. Document rendering
// happens outside this service.
func (s *Service) GenerateContract(ctx context.Context, actor booking.Actor, reservationID uuid.UUID) (*reservation.Reservation, error) {
	ctx, span := s.startSpan(ctx, "booking.generate_contract", attribute.String("reservation.id", reservationID.String()))
	defer span.End()

	r, from, err := s.mutateReservation(ctx, reservationID, reservation.StatusContractGenerated, func(r *reservation.Reservation) error {
		if r.LandlordID != actor.UserID {
			return booking.Precondition("only the landlord can generate the contract")
		}
		if !r.CanTransitionTo(reservation.StatusContractGenerated) {
			return reservation.ErrInvalidTransition
		}
		p, err := s.payments.GetByReservation(ctx, r.ReservationID)
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if p == nil || p.Status != payment.StatusCompleted {
			return booking.Precondition("the contract requires a completed payment")
		}
		return r.MarkContractGenerated(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.NewNotification(notification.TypeContractGenerated, r.TenantID,
		"Contract ready", "Your rental contract is ready to sign.", reservationPayload(r)))
	s.recordAudit(ctx, audit.EntityTypeReservation, r.ReservationID, audit.ActionGenerate, actor, string(from), string(r.Status), "")
	return r, nil
}

// SignContract records the tenant signature on a generated contract.
func (s *Service) SignContract(ctx context.Context, actor booking.Actor, reservationID uuid.UUID) (*reservation.Reservation, error) {
	ctx, span := s.startSpan(ctx, "booking.sign_contract", attribute.String("reservation.id", reservationID.String()))
	defer span.End()

	r, from, err := s.mutateReservation(ctx, reservationID, reservation.StatusContractSigned, func(r *reservation.Reservation) error {
		if r.TenantID != actor.UserID {
			return booking.Precondition("only the tenant can sign the contract")
		}
		return r.MarkContractSigned(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.NewNotification(notification.TypeContractSigned, r.LandlordID,
		"Contract signed", "The tenant signed the rental contract.", reservationPayload(r)))
	s.recordAudit(ctx, audit.EntityTypeReservation, r.ReservationID, audit.ActionSign, actor, string(from), string(r.Status), "")
	return r, nil
}

func paymentPayload(p *payment.Payment) []byte {
	return payload(map[string]interface{}{
		"paymentId":     p.PaymentID.String(),
		"reservationId": p.ReservationID.String(),
		"amount":        p.Amount,
		"currency":      p.Currency,
		"status":        p.Status,
	})
}
