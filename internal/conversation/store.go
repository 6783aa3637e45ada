// Package conversation defines the Conversation Store contract (component
// B): the append-only, per-thread log of already-redacted messages the
// Privacy Wrapper diffs against on every turn.
package conversation

import (
	"context"
	"errors"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// ErrNotFound reports a missing thread log. Read does not return it: a
// thread with no stored log reads as an empty slice and no error.
var ErrNotFound = errors.New("conversation: thread not found")

// Store is the append-only redacted message log scoped to a thread.
//
// Implementations must be safe for concurrent use across different threads;
// spec §5 requires correctness only when calls for the same thread are
// externally serialized by the caller.
type Store interface {
	// Append adds messages to the end of thread's log, in order.
	Append(ctx context.Context, thread domain.ThreadID, messages []domain.Message) error

	// Read returns every message stored for thread, in original append
	// order (oldest first), or an empty slice and no error if nothing is
	// stored for thread, whether or not it was ever seen.
	Read(ctx context.Context, thread domain.ThreadID) ([]domain.Message, error)

	// Clear deletes the entire log for thread.
	Clear(ctx context.Context, thread domain.ThreadID) error

	// Exists reports whether thread has any stored log at all.
	Exists(ctx context.Context, thread domain.ThreadID) (bool, error)

	// Close releases backend resources.
	Close() error
}
