package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	responseBucket   = "responses"
	expiryValueBytes = 8
)

// boltStore implements a Store backed by BoltDB. Each value is an 8-byte
// big-endian expiry (unix seconds) followed by the payload.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	entryTTL        time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(responseBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		entryTTL:        opts.EntryTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns a copy of the payload stored under key if it has not expired.
func (b *boltStore) Get(key string) ([]byte, bool, error) {
	if b == nil || b.db == nil {
		return nil, false, nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return nil, false, err
	}

	var (
		out   []byte
		found bool
		stale bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := responses(tx)
		if err != nil {
			return err
		}
		value := bucket.Get([]byte(key))
		if value == nil {
			return nil
		}
		expiry, payload, ok := decodeEntry(value)
		if !ok || !expiry.After(now) {
			stale = true
			return nil
		}
		out = append([]byte(nil), payload...)
		found = true
		return nil
	})
	if err != nil || !stale {
		return out, found, err
	}

	return nil, false, b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := responses(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(key))
	})
}

// Put stores value under key for the configured TTL.
func (b *boltStore) Put(key string, value []byte) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := responses(tx)
		if err != nil {
			return err
		}
		buf := make([]byte, expiryValueBytes+len(value))
		binary.BigEndian.PutUint64(buf, uint64(now.Add(b.entryTTL).Unix()))
		copy(buf[expiryValueBytes:], value)
		return bucket.Put([]byte(key), buf)
	})
}

// maybeCleanupExpired removes expired entries on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	_, err := b.deleteWhere(func(v []byte) bool {
		expiry, _, ok := decodeEntry(v)
		return !ok || !expiry.After(now)
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// Purge drops every cached response and reports how many were removed.
func (b *boltStore) Purge() (int, error) {
	if b == nil || b.db == nil {
		return 0, nil
	}
	return b.deleteWhere(func([]byte) bool { return true })
}

func (b *boltStore) deleteWhere(match func(value []byte) bool) (int, error) {
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := responses(tx)
		if err != nil {
			return err
		}
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if !match(v) {
				continue
			}
			if err := cursor.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func responses(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(responseBucket))
	if bucket == nil {
		return nil, fmt.Errorf("response bucket missing")
	}
	return bucket, nil
}

// decodeEntry splits a stored value into its expiry and payload.
func decodeEntry(value []byte) (time.Time, []byte, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, nil, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, nil, false
	}
	return time.Unix(unix, 0), value[expiryValueBytes:], true
}
