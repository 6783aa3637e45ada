// Package redisstore implements conversation.Store on Redis using a list
// per thread, per spec §6's `conv:<thread>:messages` key and the teacher's
// redis.go connection-handling style.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hfi/privacy-gateway/internal/conversation"
	"github.com/hfi/privacy-gateway/internal/domain"
)

// Store is a Redis-backed conversation.Store. Messages are RPUSHed so
// LRANGE 0 -1 returns them in append order (oldest first).
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

func listKey(thread domain.ThreadID) string {
	return fmt.Sprintf("conv:%s:messages", thread)
}

// Append pushes messages onto the tail of thread's list in order.
func (s *Store) Append(ctx context.Context, thread domain.ThreadID, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	encoded := make([]any, len(messages))
	for i, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("redisstore: encoding message: %w", err)
		}
		encoded[i] = b
	}
	key := listKey(thread)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, encoded...)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: append: %w", err)
	}
	return nil
}

// Read returns every message stored for thread in append order.
func (s *Store) Read(ctx context.Context, thread domain.ThreadID) ([]domain.Message, error) {
	raw, err := s.client.LRange(ctx, listKey(thread), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: read: %w", err)
	}
	out := make([]domain.Message, 0, len(raw))
	for _, v := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("redisstore: decoding message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Clear deletes thread's entire log.
func (s *Store) Clear(ctx context.Context, thread domain.ThreadID) error {
	if err := s.client.Del(ctx, listKey(thread)).Err(); err != nil {
		return fmt.Errorf("redisstore: clear: %w", err)
	}
	return nil
}

// Exists reports whether thread has a non-empty log key.
func (s *Store) Exists(ctx context.Context, thread domain.ThreadID) (bool, error) {
	n, err := s.client.Exists(ctx, listKey(thread)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: exists: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ conversation.Store = (*Store)(nil)
