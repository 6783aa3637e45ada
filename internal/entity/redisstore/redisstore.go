// Package redisstore implements entity.Store on top of Redis, the
// production Entity Store backend named in spec §4.1. Per thread it writes
// two hashes, ctx:<thread>:reps (placeholder -> label/original) and
// ctx:<thread>:tex2rep (label/original -> placeholder), plus one
// ctx:<thread>:lc:<label> counter per label; no per-placeholder
// ctx:<thread>:rep:<placeholder> keys and no global ctxs registry set are
// written. It mirrors the teacher's internal/storage/redis.go
// transaction shape, extended from a flat secret/placeholder pair to the
// full per-thread mapping + label-counter relation.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
)

// Store is a Redis-backed entity.Store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Config configures a Store.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// New dials Redis and verifies connectivity before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: connecting to redis: %w", err)
	}
	return &Store{client: client, ttl: cfg.TTL}, nil
}

func repKey(thread domain.ThreadID, placeholder string) string {
	return fmt.Sprintf("ctx:%s:rep:%s", thread, placeholder)
}

func repsKey(thread domain.ThreadID) string {
	return fmt.Sprintf("ctx:%s:reps", thread)
}

func tex2repKey(thread domain.ThreadID) string {
	return fmt.Sprintf("ctx:%s:tex2rep", thread)
}

func counterKey(thread domain.ThreadID, label string) string {
	return fmt.Sprintf("ctx:%s:lc:%s", thread, label)
}

// encodeValue packs a Mapping's non-key fields into a single hash value;
// the original and label are only needed on the reverse (placeholder ->
// mapping) lookup, so they are stored as "label\x00original".
func encodeValue(label, original string) string {
	return label + "\x00" + original
}

func decodeValue(v string) (label, original string) {
	for i := 0; i < len(v); i++ {
		if v[i] == 0 {
			return v[:i], v[i+1:]
		}
	}
	return "", v
}

// Put stores the mapping in one transaction, touching the reverse hash
// (placeholder -> label/original) and the forward lookup (text ->
// placeholder, keyed by "label\x00original" so identical text under
// different labels does not collide). No thread registry set is written.
func (s *Store) Put(ctx context.Context, thread domain.ThreadID, m domain.Mapping) error {
	fwdKey := encodeValue(m.Label, m.Original)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, repsKey(thread), m.Placeholder, encodeValue(m.Label, m.Original))
		p.HSet(ctx, tex2repKey(thread), fwdKey, m.Placeholder)
		if s.ttl > 0 {
			p.Expire(ctx, repsKey(thread), s.ttl)
			p.Expire(ctx, tex2repKey(thread), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: put: %w", err)
	}
	return nil
}

// GetPlaceholder looks up an existing placeholder for (original, label).
func (s *Store) GetPlaceholder(ctx context.Context, thread domain.ThreadID, original, label string) (string, error) {
	placeholder, err := s.client.HGet(ctx, tex2repKey(thread), encodeValue(label, original)).Result()
	if err == redis.Nil {
		return "", entity.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redisstore: get placeholder: %w", err)
	}
	return placeholder, nil
}

// GetOriginal reverses GetPlaceholder.
func (s *Store) GetOriginal(ctx context.Context, thread domain.ThreadID, placeholder string) (domain.Mapping, error) {
	v, err := s.client.HGet(ctx, repsKey(thread), placeholder).Result()
	if err == redis.Nil {
		return domain.Mapping{}, entity.ErrNotFound
	}
	if err != nil {
		return domain.Mapping{}, fmt.Errorf("redisstore: get original: %w", err)
	}
	label, original := decodeValue(v)
	return domain.Mapping{Original: original, Label: label, Placeholder: placeholder}, nil
}

// IncLabelCounter atomically increments the per-thread, per-label counter.
func (s *Store) IncLabelCounter(ctx context.Context, thread domain.ThreadID, label string) (int, error) {
	n, err := s.client.Incr(ctx, counterKey(thread, label)).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: inc label counter: %w", err)
	}
	if s.ttl > 0 {
		s.client.Expire(ctx, counterKey(thread, label), s.ttl)
	}
	return int(n), nil
}

// ListPlaceholders returns every mapping recorded for thread.
func (s *Store) ListPlaceholders(ctx context.Context, thread domain.ThreadID) ([]domain.Mapping, error) {
	all, err := s.client.HGetAll(ctx, repsKey(thread)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list placeholders: %w", err)
	}
	out := make([]domain.Mapping, 0, len(all))
	for placeholder, v := range all {
		label, original := decodeValue(v)
		out = append(out, domain.Mapping{Original: original, Label: label, Placeholder: placeholder})
	}
	return out, nil
}

// Clear deletes every key scoped to thread.
func (s *Store) Clear(ctx context.Context, thread domain.ThreadID) error {
	keys := []string{repsKey(thread), tex2repKey(thread)}
	counters, err := s.client.Keys(ctx, counterKey(thread, "*")).Result()
	if err != nil {
		return fmt.Errorf("redisstore: clear: %w", err)
	}
	keys = append(keys, counters...)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redisstore: clear: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
