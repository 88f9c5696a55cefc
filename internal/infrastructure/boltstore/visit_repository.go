package boltstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

var errDuplicate = errors.New("document already exists")

// VisitRepository implements visit.Repository.
type VisitRepository struct {
	db *bolt.DB
}

func NewVisitRepository(db *bolt.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVisits)
		key := v.VisitID[:]
		if b.Get(key) != nil {
			return errDuplicate
		}
		id, err := seqID(b)
		if err != nil {
			return err
		}
		doc := *v
		doc.ID = id
		doc.Version = 1
		if err := putDoc(b, key, &doc); err != nil {
			return err
		}
		v.ID, v.Version = doc.ID, doc.Version
		return nil
	})
}

func (r *VisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVisits)
		var stored visit.Visit
		found, err := getDoc(b, v.VisitID[:], &stored)
		if err != nil {
			return err
		}
		if !found {
			return booking.ErrNotFound
		}
		if stored.Version != v.Version {
			return booking.ErrVersionConflict
		}
		doc := *v
		doc.Version++
		if err := putDoc(b, v.VisitID[:], &doc); err != nil {
			return err
		}
		v.Version = doc.Version
		return nil
	})
}

func (r *VisitRepository) GetByID(ctx context.Context, visitID uuid.UUID) (*visit.Visit, error) {
	var v visit.Visit
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getDoc(tx.Bucket(bucketVisits), visitID[:], &v)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

func (r *VisitRepository) LatestFor(ctx context.Context, requesterID string, propertyID uuid.UUID) (*visit.Visit, error) {
	var out *visit.Visit
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketVisits), func(v *visit.Visit) bool {
			return v.RequesterID == requesterID && v.PropertyID == propertyID
		})
		if err != nil {
			return err
		}
		out = latest(items, visitOrder)
		return nil
	})
	return out, err
}

// ListDue returns confirmed or active visits scheduled at or before now, oldest first.
func (r *VisitRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*visit.Visit, error) {
	var out []*visit.Visit
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketVisits), func(v *visit.Visit) bool {
			return (v.Status == visit.StatusConfirmed || v.Status == visit.StatusActive) && v.IsDue(now)
		})
		if err != nil {
			return err
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ScheduledAt.Before(items[j].ScheduledAt) })
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		out = items
		return nil
	})
	return out, err
}

func (r *VisitRepository) List(ctx context.Context, filter visit.Filter, limit, offset int) ([]*visit.Visit, error) {
	var out []*visit.Visit
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketVisits), func(v *visit.Visit) bool {
			if filter.PropertyID != nil && v.PropertyID != *filter.PropertyID {
				return false
			}
			if filter.RequesterID != nil && v.RequesterID != *filter.RequesterID {
				return false
			}
			if filter.OwnerID != nil && v.OwnerID != *filter.OwnerID {
				return false
			}
			if filter.Status != nil && v.Status != *filter.Status {
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		out = page(items, visitOrder, limit, offset)
		return nil
	})
	return out, err
}

func visitOrder(v *visit.Visit) (time.Time, int64) {
	return v.CreatedAt, v.ID
}
