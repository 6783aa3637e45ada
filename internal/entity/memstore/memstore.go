// Package memstore implements entity.Store purely in process memory, with
// no persistence, for unit tests and short-lived local runs. Adapted from
// the teacher's internal/storage.MemoryStore: the same mutex-guarded map
// plus reverse index and TTL-driven background cleanup, restructured from
// a flat secret/placeholder pair into the per-thread mapping and label
// counter relation entity.Store requires.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
)

type threadState struct {
	reps     map[string]domain.Mapping // placeholder -> mapping
	tex2rep  map[string]string         // "label\x00original" -> placeholder
	counters map[string]int            // label -> counter
	lastUsed time.Time
}

// Store is an in-memory entity.Store. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	threads     map[domain.ThreadID]*threadState
	ttl         time.Duration
	stopCleanup chan struct{}
}

// New returns a Store. If ttl is non-zero, a background goroutine evicts
// threads untouched for longer than ttl, mirroring the teacher's
// cleanupLoop; call Close to stop it.
func New(ttl time.Duration) *Store {
	s := &Store{
		threads:     make(map[domain.ThreadID]*threadState),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	if ttl > 0 {
		go s.cleanupLoop()
	}
	return s
}

func fwdKey(label, original string) string {
	return label + "\x00" + original
}

func (s *Store) state(thread domain.ThreadID) *threadState {
	st, ok := s.threads[thread]
	if !ok {
		st = &threadState{
			reps:     make(map[string]domain.Mapping),
			tex2rep:  make(map[string]string),
			counters: make(map[string]int),
		}
		s.threads[thread] = st
	}
	st.lastUsed = time.Now()
	return st
}

// Put implements entity.Store.
func (s *Store) Put(_ context.Context, thread domain.ThreadID, m domain.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(thread)
	st.reps[m.Placeholder] = m
	st.tex2rep[fwdKey(m.Label, m.Original)] = m.Placeholder
	return nil
}

// GetPlaceholder implements entity.Store.
func (s *Store) GetPlaceholder(_ context.Context, thread domain.ThreadID, original, label string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[thread]
	if !ok {
		return "", entity.ErrNotFound
	}
	ph, ok := st.tex2rep[fwdKey(label, original)]
	if !ok {
		return "", entity.ErrNotFound
	}
	return ph, nil
}

// GetOriginal implements entity.Store.
func (s *Store) GetOriginal(_ context.Context, thread domain.ThreadID, placeholder string) (domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[thread]
	if !ok {
		return domain.Mapping{}, entity.ErrNotFound
	}
	m, ok := st.reps[placeholder]
	if !ok {
		return domain.Mapping{}, entity.ErrNotFound
	}
	return m, nil
}

// IncLabelCounter implements entity.Store.
func (s *Store) IncLabelCounter(_ context.Context, thread domain.ThreadID, label string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(thread)
	st.counters[label]++
	return st.counters[label], nil
}

// ListPlaceholders implements entity.Store.
func (s *Store) ListPlaceholders(_ context.Context, thread domain.ThreadID) ([]domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[thread]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Mapping, 0, len(st.reps))
	for _, m := range st.reps {
		out = append(out, m)
	}
	return out, nil
}

// Clear implements entity.Store.
func (s *Store) Clear(_ context.Context, thread domain.ThreadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, thread)
	return nil
}

// Close implements entity.Store.
func (s *Store) Close() error {
	if s.ttl > 0 {
		close(s.stopCleanup)
	}
	return nil
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for thread, st := range s.threads {
		if now.Sub(st.lastUsed) > s.ttl {
			delete(s.threads, thread)
		}
	}
}

var _ entity.Store = (*Store)(nil)
