package boltstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/payment"
)

// PaymentRepository implements payment.Repository.
type PaymentRepository struct {
	db *bolt.DB
}

func NewPaymentRepository(db *bolt.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayments)
		key := p.PaymentID[:]
		if b.Get(key) != nil {
			return errDuplicate
		}
		existing, err := scan(b, func(other *payment.Payment) bool {
			return other.ReservationID == p.ReservationID && other.Status != payment.StatusNone
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errDuplicate
		}
		id, err := seqID(b)
		if err != nil {
			return err
		}
		doc := *p
		doc.ID = id
		doc.Version = 1
		if err := putDoc(b, key, &doc); err != nil {
			return err
		}
		p.ID, p.Version = doc.ID, doc.Version
		return nil
	})
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayments)
		var stored payment.Payment
		found, err := getDoc(b, p.PaymentID[:], &stored)
		if err != nil {
			return err
		}
		if !found {
			return booking.ErrNotFound
		}
		if stored.Version != p.Version {
			return booking.ErrVersionConflict
		}
		doc := *p
		doc.Version++
		if err := putDoc(b, p.PaymentID[:], &doc); err != nil {
			return err
		}
		p.Version = doc.Version
		return nil
	})
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getDoc(tx.Bucket(bucketPayments), paymentID[:], &p)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*payment.Payment, error) {
	var out *payment.Payment
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketPayments), func(p *payment.Payment) bool {
			return p.ReservationID == reservationID
		})
		if err != nil {
			return err
		}
		out = latest(items, func(p *payment.Payment) (time.Time, int64) { return p.CreatedAt, p.ID })
		return nil
	})
	return out, err
}
