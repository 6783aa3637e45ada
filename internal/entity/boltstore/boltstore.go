// Package boltstore implements entity.Store on top of go.etcd.io/bbolt, the
// embedded single-node alternative to Redis named in spec §4.1, grounded on
// the persistent bbolt cache pattern in laplaque-ai-anonymizing-proxy.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
)

var (
	bucketReps    = []byte("reps")    // placeholder -> encoded mapping
	bucketTex2Rep = []byte("tex2rep") // "label\x00original" -> placeholder
	bucketCounts  = []byte("counts")  // label -> uint64 counter
)

// Store is a bbolt-backed entity.Store, one top-level bucket per thread,
// each holding the three sub-buckets above.
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

func threadBucket(tx *bbolt.Tx, thread domain.ThreadID, create bool) (*bbolt.Bucket, error) {
	name := []byte(thread.String())
	if create {
		return tx.CreateBucketIfNotExists(name)
	}
	b := tx.Bucket(name)
	if b == nil {
		return nil, entity.ErrNotFound
	}
	return b, nil
}

type encodedMapping struct {
	Label    string `json:"label"`
	Original string `json:"original"`
}

// Put records m for thread in a single read-write transaction, giving the
// same atomicity across the reverse and forward indexes that the Redis
// backend gets from TxPipelined.
func (s *Store) Put(ctx context.Context, thread domain.ThreadID, m domain.Mapping) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		thr, err := threadBucket(tx, thread, true)
		if err != nil {
			return err
		}
		reps, err := thr.CreateBucketIfNotExists(bucketReps)
		if err != nil {
			return err
		}
		tex2rep, err := thr.CreateBucketIfNotExists(bucketTex2Rep)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(encodedMapping{Label: m.Label, Original: m.Original})
		if err != nil {
			return err
		}
		if err := reps.Put([]byte(m.Placeholder), encoded); err != nil {
			return err
		}
		return tex2rep.Put(fwdKey(m.Label, m.Original), []byte(m.Placeholder))
	})
}

func fwdKey(label, original string) []byte {
	return []byte(label + "\x00" + original)
}

// GetPlaceholder looks up an existing placeholder for (original, label).
func (s *Store) GetPlaceholder(ctx context.Context, thread domain.ThreadID, original, label string) (string, error) {
	var placeholder string
	err := s.db.View(func(tx *bbolt.Tx) error {
		thr, err := threadBucket(tx, thread, false)
		if err != nil {
			return err
		}
		tex2rep := thr.Bucket(bucketTex2Rep)
		if tex2rep == nil {
			return entity.ErrNotFound
		}
		v := tex2rep.Get(fwdKey(label, original))
		if v == nil {
			return entity.ErrNotFound
		}
		placeholder = string(v)
		return nil
	})
	return placeholder, err
}

// GetOriginal reverses GetPlaceholder.
func (s *Store) GetOriginal(ctx context.Context, thread domain.ThreadID, placeholder string) (domain.Mapping, error) {
	var m domain.Mapping
	err := s.db.View(func(tx *bbolt.Tx) error {
		thr, err := threadBucket(tx, thread, false)
		if err != nil {
			return err
		}
		reps := thr.Bucket(bucketReps)
		if reps == nil {
			return entity.ErrNotFound
		}
		v := reps.Get([]byte(placeholder))
		if v == nil {
			return entity.ErrNotFound
		}
		var enc encodedMapping
		if err := json.Unmarshal(v, &enc); err != nil {
			return fmt.Errorf("boltstore: decoding mapping: %w", err)
		}
		m = domain.Mapping{Original: enc.Original, Label: enc.Label, Placeholder: placeholder}
		return nil
	})
	return m, err
}

// IncLabelCounter atomically increments and returns the per-thread,
// per-label counter.
func (s *Store) IncLabelCounter(ctx context.Context, thread domain.ThreadID, label string) (int, error) {
	var n uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		thr, err := threadBucket(tx, thread, true)
		if err != nil {
			return err
		}
		counts, err := thr.CreateBucketIfNotExists(bucketCounts)
		if err != nil {
			return err
		}
		key := []byte(label)
		if v := counts.Get(key); v != nil {
			n = binary.BigEndian.Uint64(v) + 1
		} else {
			n = 1
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, n)
		return counts.Put(key, buf)
	})
	return int(n), err
}

// ListPlaceholders returns every mapping recorded for thread.
func (s *Store) ListPlaceholders(ctx context.Context, thread domain.ThreadID) ([]domain.Mapping, error) {
	var out []domain.Mapping
	err := s.db.View(func(tx *bbolt.Tx) error {
		thr, err := threadBucket(tx, thread, false)
		if err == entity.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		reps := thr.Bucket(bucketReps)
		if reps == nil {
			return nil
		}
		return reps.ForEach(func(k, v []byte) error {
			var enc encodedMapping
			if err := json.Unmarshal(v, &enc); err != nil {
				return err
			}
			out = append(out, domain.Mapping{Original: enc.Original, Label: enc.Label, Placeholder: string(k)})
			return nil
		})
	})
	return out, err
}

// Clear deletes the thread's top-level bucket and everything in it.
func (s *Store) Clear(ctx context.Context, thread domain.ThreadID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(thread.String()))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

// Close closes the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}
