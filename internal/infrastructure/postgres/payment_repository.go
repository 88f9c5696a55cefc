package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/payment"
)

const paymentColumns = `id, payment_id, reservation_id, payer_id, payee_id, amount, currency, method, status, version, created_at, updated_at, completed_at`

// PaymentRepository implements payment.Repository. A partial unique index keeps one
// live payment per reservation.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO payments
		(payment_id, reservation_id, payer_id, payee_id, amount, currency, method, status, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1,$9,$10)
		RETURNING id, version
	`, p.PaymentID, p.ReservationID, p.PayerID, p.PayeeID, p.Amount, p.Currency, p.Method, p.Status, p.CreatedAt, p.UpdatedAt)
	return row.Scan(&p.ID, &p.Version)
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET status=$1, updated_at=$2, completed_at=$3, version=version+1
		WHERE payment_id=$4 AND version=$5
	`, p.Status, p.UpdatedAt, p.CompletedAt, p.PaymentID, p.Version)
	if err != nil {
		return err
	}
	if err := versioned(ctx, r.pool, tag, "payments", "payment_id", p.PaymentID); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*payment.Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_id=$1`, paymentID)
	return scanPayment(row)
}

func (r *PaymentRepository) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*payment.Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE reservation_id=$1
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, reservationID)
	return scanPayment(row)
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	if err := row.Scan(&p.ID, &p.PaymentID, &p.ReservationID, &p.PayerID, &p.PayeeID, &p.Amount, &p.Currency, &p.Method, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
