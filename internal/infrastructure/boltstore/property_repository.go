package boltstore

import (
	"context"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/property"
)

// PropertyRepository implements property.Repository over synced listing snapshots.
type PropertyRepository struct {
	db *bolt.DB
}

func NewPropertyRepository(db *bolt.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) GetProperty(ctx context.Context, propertyID uuid.UUID) (*property.Property, error) {
	var p property.Property
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getDoc(tx.Bucket(bucketProperties), propertyID[:], &p)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (r *PropertyRepository) Upsert(ctx context.Context, p *property.Property) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return putDoc(tx.Bucket(bucketProperties), p.PropertyID[:], p)
	})
}
