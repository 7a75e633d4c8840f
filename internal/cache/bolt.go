package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var feedBucket = []byte("feed_cache")

// BoltStore implements Store on a bbolt file, giving cache entries a life
// beyond the process.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the cache database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(feedBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (*Entry, error) {
	var e *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(feedBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var decoded Entry
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decode cache entry: %w", err)
		}
		e = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *BoltStore) Set(_ context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(feedBucket).Put([]byte(key), raw)
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(feedBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(feedBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Clear removes every entry and returns the number removed.
func (s *BoltStore) Clear(_ context.Context) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedBucket)
		if err := b.ForEach(func(_, _ []byte) error {
			removed++
			return nil
		}); err != nil {
			return err
		}
		if err := tx.DeleteBucket(feedBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(feedBucket)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
