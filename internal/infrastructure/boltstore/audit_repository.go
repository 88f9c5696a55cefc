package boltstore

import (
	"context"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/audit"
)

// AuditRepository implements audit.Repository.
type AuditRepository struct {
	db *bolt.DB
}

func NewAuditRepository(db *bolt.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *audit.AuditLog) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAudit)
		id, err := seqID(b)
		if err != nil {
			return err
		}
		entry.ID = id
		return putDoc(b, entry.AuditID[:], entry)
	})
}

// GetByEntityID returns the history of an entity in insertion order.
func (r *AuditRepository) GetByEntityID(ctx context.Context, entityType audit.EntityType, entityID string) ([]*audit.AuditLog, error) {
	var out []*audit.AuditLog
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketAudit), func(l *audit.AuditLog) bool {
			return l.EntityType == entityType && l.EntityID == entityID
		})
		if err != nil {
			return err
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		out = items
		return nil
	})
	return out, err
}
