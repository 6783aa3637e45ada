// Package entity defines the Entity Store contract (component A): the
// per-thread, bidirectional relation between original entity values and the
// placeholders substituted for them, plus the monotonic per-label counters
// the numbered Replacer strategy relies on.
package entity

import (
	"context"
	"errors"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// ErrNotFound is returned by lookups that find no mapping.
var ErrNotFound = errors.New("entity: mapping not found")

// ErrUnsupportedByBackend is returned by operations a backend cannot honor,
// e.g. IncLabelCounter and ListPlaceholders on the encryption-native store,
// which keeps no persistent mapping per spec §4.1.
var ErrUnsupportedByBackend = errors.New("entity: operation not supported by this backend")

// Store is the per-thread entity mapping contract. Every method is scoped to
// a single domain.ThreadID; callers never see another thread's mappings.
//
// Implementations must be safe for concurrent use across different threads.
// Spec §5 only requires correctness when calls for the same thread are
// externally serialized by the caller, so a Store is free to use
// lock-per-thread or backend-native atomicity rather than a global mutex.
type Store interface {
	// Put records that original (detected under label) maps to placeholder
	// for thread. Putting the same (thread, original, label) pair twice
	// with the same placeholder has no further effect on the mapping. No
	// implementation checks whether the pair already maps to a different
	// placeholder, and none returns an error for it; the Replacer checks
	// GetPlaceholder before calling Put.
	Put(ctx context.Context, thread domain.ThreadID, m domain.Mapping) error

	// GetPlaceholder returns the placeholder previously stored for original
	// under label, or ErrNotFound if none exists yet.
	GetPlaceholder(ctx context.Context, thread domain.ThreadID, original, label string) (string, error)

	// GetOriginal reverses GetPlaceholder, used by restore.
	GetOriginal(ctx context.Context, thread domain.ThreadID, placeholder string) (domain.Mapping, error)

	// IncLabelCounter atomically increments and returns the counter for
	// label within thread, the source of the "NN" in "[LABEL_NN]"
	// placeholders. Starts at 1 on first call.
	IncLabelCounter(ctx context.Context, thread domain.ThreadID, label string) (int, error)

	// ListPlaceholders returns every mapping recorded for thread, in no
	// particular order; restore sorts them itself.
	ListPlaceholders(ctx context.Context, thread domain.ThreadID) ([]domain.Mapping, error)

	// Clear deletes all mappings and counters for thread.
	Clear(ctx context.Context, thread domain.ThreadID) error

	// Close releases backend resources (connections, file handles).
	Close() error
}
