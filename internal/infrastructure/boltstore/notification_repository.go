package boltstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	db *bolt.DB
}

func NewNotificationRepository(db *bolt.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		if b.Get(n.NotificationID[:]) != nil {
			return errDuplicate
		}
		id, err := seqID(b)
		if err != nil {
			return err
		}
		n.ID = id
		return putDoc(b, n.NotificationID[:], n)
	})
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	var n notification.Notification
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getDoc(tx.Bucket(bucketNotifications), notificationID[:], &n)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.Filter, limit, offset int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketNotifications), func(n *notification.Notification) bool {
			if filter.TargetUserID != nil && n.TargetUserID != *filter.TargetUserID {
				return false
			}
			if filter.Type != nil && n.Type != *filter.Type {
				return false
			}
			if filter.Status != nil && n.Status != *filter.Status {
				return false
			}
			if filter.Unread && n.ReadAt != nil {
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		out = page(items, func(n *notification.Notification) (time.Time, int64) { return n.CreatedAt, n.ID }, limit, offset)
		return nil
	})
	return out, err
}

func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		if b.Get(n.NotificationID[:]) == nil {
			return booking.ErrNotFound
		}
		return putDoc(b, n.NotificationID[:], n)
	})
}
