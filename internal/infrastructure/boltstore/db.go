// Package boltstore keeps every booking entity as a JSON document in an embedded
// bbolt database, one bucket per entity type.
package boltstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketVisits        = []byte("visits")
	bucketReservations  = []byte("reservations")
	bucketPayments      = []byte("payments")
	bucketNotifications = []byte("notifications")
	bucketChatMessages  = []byte("chat_messages")
	bucketProfiles      = []byte("profile_activity")
	bucketAudit         = []byte("audit_logs")
	bucketProperties    = []byte("properties")
)

var allBuckets = [][]byte{
	bucketVisits,
	bucketReservations,
	bucketPayments,
	bucketNotifications,
	bucketChatMessages,
	bucketProfiles,
	bucketAudit,
	bucketProperties,
}

// Open opens (creating if needed) the database file at path and its buckets.
func Open(path string) (*bolt.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Stats reports document counts per bucket.
func Stats(db *bolt.DB) (map[string]int, error) {
	out := make(map[string]int, len(allBuckets))
	err := db.View(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			out[string(name)] = tx.Bucket(name).Stats().KeyN
		}
		return nil
	})
	return out, err
}

func getDoc(b *bolt.Bucket, key []byte, v interface{}) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func putDoc(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// scan decodes every document of b and keeps those accepted by keep.
func scan[T any](b *bolt.Bucket, keep func(*T) bool) ([]*T, error) {
	var out []*T
	err := b.ForEach(func(k, data []byte) error {
		item := new(T)
		if err := json.Unmarshal(data, item); err != nil {
			return fmt.Errorf("decode %x: %w", k, err)
		}
		if keep == nil || keep(item) {
			out = append(out, item)
		}
		return nil
	})
	return out, err
}

// orderKey returns the timestamp and insertion sequence a document is ordered by.
type orderKey[T any] func(*T) (time.Time, int64)

// newer reports whether a sorts before b: later timestamp first, then higher sequence.
func newer[T any](key orderKey[T], a, b *T) bool {
	atA, idA := key(a)
	atB, idB := key(b)
	if !atA.Equal(atB) {
		return atA.After(atB)
	}
	return idA > idB
}

// page sorts items newest first and applies limit/offset.
func page[T any](items []*T, key orderKey[T], limit, offset int) []*T {
	sort.SliceStable(items, func(i, j int) bool {
		return newer(key, items[i], items[j])
	})
	if offset >= len(items) {
		return []*T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func latest[T any](items []*T, key orderKey[T]) *T {
	var best *T
	for _, item := range items {
		if best == nil || newer(key, item, best) {
			best = item
		}
	}
	return best
}

func seqID(b *bolt.Bucket) (int64, error) {
	n, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

