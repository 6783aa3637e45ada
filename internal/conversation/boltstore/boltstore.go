// Package boltstore implements conversation.Store on go.etcd.io/bbolt for
// local development and tests, paralleling internal/entity/boltstore.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/hfi/privacy-gateway/internal/conversation"
	"github.com/hfi/privacy-gateway/internal/domain"
)

// Store is a bbolt-backed conversation.Store. Each thread gets its own
// top-level bucket; keys within it are big-endian sequence numbers so
// iteration order matches append order.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: opening %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Append adds messages to the end of thread's log in a single transaction.
func (s *Store) Append(ctx context.Context, thread domain.ThreadID, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(thread.String()))
		if err != nil {
			return err
		}
		for _, m := range messages {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(m)
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			if err := b.Put(key, encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

// Read returns every message stored for thread in append order.
func (s *Store) Read(ctx context.Context, thread domain.ThreadID) ([]domain.Message, error) {
	var out []domain.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(thread.String()))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var m domain.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: read: %w", err)
	}
	return out, nil
}

// Clear deletes thread's bucket entirely.
func (s *Store) Clear(ctx context.Context, thread domain.ThreadID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(thread.String()))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

// Exists reports whether thread has a bucket at all.
func (s *Store) Exists(ctx context.Context, thread domain.ThreadID) (bool, error) {
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(thread.String())) != nil
		return nil
	})
	return found, err
}

// Close closes the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ conversation.Store = (*Store)(nil)
