package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/profile"
)

// ProfileRepository implements profile.Repository.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Upsert(ctx context.Context, a *profile.Activity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profile_activity (user_id, property_id, visit_id, visit_status, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id, property_id)
		DO UPDATE SET visit_id=EXCLUDED.visit_id, visit_status=EXCLUDED.visit_status, updated_at=EXCLUDED.updated_at
	`, a.UserID, a.PropertyID, a.VisitID, a.VisitStatus, a.UpdatedAt)
	return err
}

func (r *ProfileRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*profile.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, property_id, visit_id, visit_status, updated_at
		FROM profile_activity WHERE user_id=$1
		ORDER BY updated_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*profile.Activity
	for rows.Next() {
		var a profile.Activity
		if err := rows.Scan(&a.UserID, &a.PropertyID, &a.VisitID, &a.VisitStatus, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
