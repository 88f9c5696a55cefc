package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/reservation"
)

const reservationColumns = `id, reservation_id, property_id, tenant_id, landlord_id, visit_id, start_date, end_date, occupants, monthly_income, monthly_rent, has_guarantor, status, refusal_reason, version, created_at, updated_at, decided_at, signed_at`

// ReservationRepository implements reservation.Repository.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reservations
		(reservation_id, property_id, tenant_id, landlord_id, visit_id, start_date, end_date, occupants, monthly_income, monthly_rent, has_guarantor, status, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,$13,$14)
		RETURNING id, version
	`, res.ReservationID, res.PropertyID, res.TenantID, res.LandlordID, res.VisitID, res.StartDate, res.EndDate, res.Occupants, res.MonthlyIncome, res.MonthlyRent, res.HasGuarantor, res.Status, res.CreatedAt, res.UpdatedAt)
	return row.Scan(&res.ID, &res.Version)
}

func (r *ReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reservations
		SET status=$1, refusal_reason=$2, updated_at=$3, decided_at=$4, signed_at=$5, version=version+1
		WHERE reservation_id=$6 AND version=$7
	`, res.Status, res.RefusalReason, res.UpdatedAt, res.DecidedAt, res.SignedAt, res.ReservationID, res.Version)
	if err != nil {
		return err
	}
	if err := versioned(ctx, r.pool, tag, "reservations", "reservation_id", res.ReservationID); err != nil {
		return err
	}
	res.Version++
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, reservationID uuid.UUID) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reservation_id=$1`, reservationID)
	return scanReservation(row)
}

func (r *ReservationRepository) LatestFor(ctx context.Context, tenantID string, propertyID uuid.UUID) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE tenant_id=$1 AND property_id=$2
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, tenantID, propertyID)
	return scanReservation(row)
}

func (r *ReservationRepository) List(ctx context.Context, filter reservation.Filter, limit, offset int) ([]*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	args := []interface{}{}
	idx := 1
	if filter.PropertyID != nil {
		query += addWhere(query) + " property_id=$" + itoa(idx)
		args = append(args, *filter.PropertyID)
		idx++
	}
	if filter.TenantID != nil {
		query += addWhere(query) + " tenant_id=$" + itoa(idx)
		args = append(args, *filter.TenantID)
		idx++
	}
	if filter.LandlordID != nil {
		query += addWhere(query) + " landlord_id=$" + itoa(idx)
		args = append(args, *filter.LandlordID)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*reservation.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var res reservation.Reservation
	if err := row.Scan(&res.ID, &res.ReservationID, &res.PropertyID, &res.TenantID, &res.LandlordID, &res.VisitID, &res.StartDate, &res.EndDate, &res.Occupants, &res.MonthlyIncome, &res.MonthlyRent, &res.HasGuarantor, &res.Status, &res.RefusalReason, &res.Version, &res.CreatedAt, &res.UpdatedAt, &res.DecidedAt, &res.SignedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}
