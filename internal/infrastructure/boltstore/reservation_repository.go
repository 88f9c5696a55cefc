package boltstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
)

// ReservationRepository implements reservation.Repository.
type ReservationRepository struct {
	db *bolt.DB
}

func NewReservationRepository(db *bolt.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReservations)
		key := res.ReservationID[:]
		if b.Get(key) != nil {
			return errDuplicate
		}
		id, err := seqID(b)
		if err != nil {
			return err
		}
		doc := *res
		doc.ID = id
		doc.Version = 1
		if err := putDoc(b, key, &doc); err != nil {
			return err
		}
		res.ID, res.Version = doc.ID, doc.Version
		return nil
	})
}

func (r *ReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReservations)
		var stored reservation.Reservation
		found, err := getDoc(b, res.ReservationID[:], &stored)
		if err != nil {
			return err
		}
		if !found {
			return booking.ErrNotFound
		}
		if stored.Version != res.Version {
			return booking.ErrVersionConflict
		}
		doc := *res
		doc.Version++
		if err := putDoc(b, res.ReservationID[:], &doc); err != nil {
			return err
		}
		res.Version = doc.Version
		return nil
	})
}

func (r *ReservationRepository) GetByID(ctx context.Context, reservationID uuid.UUID) (*reservation.Reservation, error) {
	var res reservation.Reservation
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getDoc(tx.Bucket(bucketReservations), reservationID[:], &res)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepository) LatestFor(ctx context.Context, tenantID string, propertyID uuid.UUID) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketReservations), func(res *reservation.Reservation) bool {
			return res.TenantID == tenantID && res.PropertyID == propertyID
		})
		if err != nil {
			return err
		}
		out = latest(items, reservationOrder)
		return nil
	})
	return out, err
}

func (r *ReservationRepository) List(ctx context.Context, filter reservation.Filter, limit, offset int) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketReservations), func(res *reservation.Reservation) bool {
			if filter.PropertyID != nil && res.PropertyID != *filter.PropertyID {
				return false
			}
			if filter.TenantID != nil && res.TenantID != *filter.TenantID {
				return false
			}
			if filter.LandlordID != nil && res.LandlordID != *filter.LandlordID {
				return false
			}
			if filter.Status != nil && res.Status != *filter.Status {
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		out = page(items, reservationOrder, limit, offset)
		return nil
	})
	return out, err
}

func reservationOrder(r *reservation.Reservation) (time.Time, int64) {
	return r.CreatedAt, r.ID
}
