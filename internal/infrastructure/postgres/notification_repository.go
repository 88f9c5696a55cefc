package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

const notificationColumns = `id, notification_id, type, title, message, target_user_id, payload, actions, status, last_error, created_at, sent_at, failed_at, read_at, acted_at`

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications
		(notification_id, type, title, message, target_user_id, payload, actions, status, last_error, created_at, sent_at, failed_at, read_at, acted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id
	`, n.NotificationID, n.Type, n.Title, n.Message, n.TargetUserID, n.Payload, n.Actions, n.Status, n.LastError, n.CreatedAt, n.SentAt, n.FailedAt, n.ReadAt, n.ActedAt)
	return row.Scan(&n.ID)
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE notification_id=$1`, notificationID)
	return scanNotification(row)
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.Filter, limit, offset int) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	args := []interface{}{}
	idx := 1
	if filter.TargetUserID != nil {
		query += addWhere(query) + " target_user_id=$" + itoa(idx)
		args = append(args, *filter.TargetUserID)
		idx++
	}
	if filter.Type != nil {
		query += addWhere(query) + " type=$" + itoa(idx)
		args = append(args, *filter.Type)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Unread {
		query += addWhere(query) + " read_at IS NULL"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status=$1, last_error=$2, sent_at=$3, failed_at=$4, read_at=$5, acted_at=$6
		WHERE notification_id=$7
	`, n.Status, n.LastError, n.SentAt, n.FailedAt, n.ReadAt, n.ActedAt, n.NotificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	if err := row.Scan(&n.ID, &n.NotificationID, &n.Type, &n.Title, &n.Message, &n.TargetUserID, &n.Payload, &n.Actions, &n.Status, &n.LastError, &n.CreatedAt, &n.SentAt, &n.FailedAt, &n.ReadAt, &n.ActedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}
