package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

const visitColumns = `id, visit_id, property_id, requester_id, owner_id, scheduled_date, scheduled_time, time_zone, scheduled_at, status, version, created_at, updated_at, responded_at, completed_at, cancelled_at, cancelled_by`

// VisitRepository implements visit.Repository.
type VisitRepository struct {
	pool *pgxpool.Pool
}

func NewVisitRepository(pool *pgxpool.Pool) *VisitRepository {
	return &VisitRepository{pool: pool}
}

func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO visits
		(visit_id, property_id, requester_id, owner_id, scheduled_date, scheduled_time, time_zone, scheduled_at, status, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1,$10,$11)
		RETURNING id, version
	`, v.VisitID, v.PropertyID, v.RequesterID, v.OwnerID, v.ScheduledDate, v.ScheduledTime, v.TimeZone, v.ScheduledAt, v.Status, v.CreatedAt, v.UpdatedAt)
	return row.Scan(&v.ID, &v.Version)
}

func (r *VisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE visits
		SET status=$1, updated_at=$2, responded_at=$3, completed_at=$4, cancelled_at=$5, cancelled_by=$6, version=version+1
		WHERE visit_id=$7 AND version=$8
	`, v.Status, v.UpdatedAt, v.RespondedAt, v.CompletedAt, v.CancelledAt, v.CancelledBy, v.VisitID, v.Version)
	if err != nil {
		return err
	}
	if err := versioned(ctx, r.pool, tag, "visits", "visit_id", v.VisitID); err != nil {
		return err
	}
	v.Version++
	return nil
}

func (r *VisitRepository) GetByID(ctx context.Context, visitID uuid.UUID) (*visit.Visit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+visitColumns+` FROM visits WHERE visit_id=$1`, visitID)
	return scanVisit(row)
}

func (r *VisitRepository) LatestFor(ctx context.Context, requesterID string, propertyID uuid.UUID) (*visit.Visit, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE requester_id=$1 AND property_id=$2
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, requesterID, propertyID)
	return scanVisit(row)
}

// ListDue returns confirmed or active visits scheduled at or before now, oldest first.
func (r *VisitRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*visit.Visit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE status IN ('CONFIRMED','ACTIVE') AND scheduled_at <= $1
		ORDER BY scheduled_at ASC LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return collectVisits(rows)
}

func (r *VisitRepository) List(ctx context.Context, filter visit.Filter, limit, offset int) ([]*visit.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits`
	args := []interface{}{}
	idx := 1
	if filter.PropertyID != nil {
		query += addWhere(query) + " property_id=$" + itoa(idx)
		args = append(args, *filter.PropertyID)
		idx++
	}
	if filter.RequesterID != nil {
		query += addWhere(query) + " requester_id=$" + itoa(idx)
		args = append(args, *filter.RequesterID)
		idx++
	}
	if filter.OwnerID != nil {
		query += addWhere(query) + " owner_id=$" + itoa(idx)
		args = append(args, *filter.OwnerID)
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
	return collectVisits(rows)
}

func collectVisits(rows pgx.Rows) ([]*visit.Visit, error) {
	defer rows.Close()
	var visits []*visit.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func scanVisit(row pgx.Row) (*visit.Visit, error) {
	var v visit.Visit
	if err := row.Scan(&v.ID, &v.VisitID, &v.PropertyID, &v.RequesterID, &v.OwnerID, &v.ScheduledDate, &v.ScheduledTime, &v.TimeZone, &v.ScheduledAt, &v.Status, &v.Version, &v.CreatedAt, &v.UpdatedAt, &v.RespondedAt, &v.CompletedAt, &v.CancelledAt, &v.CancelledBy); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
