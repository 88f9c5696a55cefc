package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/property"
)

// PropertyRepository implements property.Repository over synced listing snapshots.
type PropertyRepository struct {
	pool *pgxpool.Pool
}

func NewPropertyRepository(pool *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{pool: pool}
}

func (r *PropertyRepository) GetProperty(ctx context.Context, propertyID uuid.UUID) (*property.Property, error) {
	var p property.Property
	err := r.pool.QueryRow(ctx, `
		SELECT property_id, owner_id, status, max_occupants, monthly_rent, direct_booking, time_zone, eligibility_rule, updated_at
		FROM properties WHERE property_id=$1
	`, propertyID).Scan(&p.PropertyID, &p.OwnerID, &p.Status, &p.MaxOccupants, &p.MonthlyRent, &p.DirectBooking, &p.TimeZone, &p.EligibilityRule, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PropertyRepository) Upsert(ctx context.Context, p *property.Property) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO properties (property_id, owner_id, status, max_occupants, monthly_rent, direct_booking, time_zone, eligibility_rule, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (property_id) DO UPDATE SET
			owner_id=EXCLUDED.owner_id, status=EXCLUDED.status, max_occupants=EXCLUDED.max_occupants,
			monthly_rent=EXCLUDED.monthly_rent, direct_booking=EXCLUDED.direct_booking,
			time_zone=EXCLUDED.time_zone, eligibility_rule=EXCLUDED.eligibility_rule, updated_at=EXCLUDED.updated_at
	`, p.PropertyID, p.OwnerID, p.Status, p.MaxOccupants, p.MonthlyRent, p.DirectBooking, p.TimeZone, p.EligibilityRule, p.UpdatedAt)
	return err
}
