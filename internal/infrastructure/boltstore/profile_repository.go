package boltstore

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/profile"
)

// ProfileRepository implements profile.Repository.
type ProfileRepository struct {
	db *bolt.DB
}

func NewProfileRepository(db *bolt.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func profileKey(a *profile.Activity) []byte {
	return []byte(a.UserID + "|" + a.PropertyID.String())
}

func (r *ProfileRepository) Upsert(ctx context.Context, a *profile.Activity) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return putDoc(tx.Bucket(bucketProfiles), profileKey(a), a)
	})
}

func (r *ProfileRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*profile.Activity, error) {
	var out []*profile.Activity
	err := r.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketProfiles), func(a *profile.Activity) bool {
			return a.UserID == userID
		})
		if err != nil {
			return err
		}
		out = page(items, func(a *profile.Activity) (time.Time, int64) { return a.UpdatedAt, 0 }, limit, offset)
		return nil
	})
	return out, err
}
