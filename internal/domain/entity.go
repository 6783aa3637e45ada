// Package domain holds the data types shared across the privacy pipeline:
// detected entities, thread identifiers, and the redacted message log.
// It has no dependencies on storage, detection, or replacement so every
// other package can import it without cycles.
package domain

import (
	"encoding/hex"
	"fmt"
)

// Entity is a detected span within a single text blob, as returned by a
// Detector. Offsets are half-open byte offsets into the source string.
type Entity struct {
	Start int
	End   int
	Text  string
	Label string
	Score float64
}

// Validate checks the Entity invariants from the data model: 0 <= Start <
// End <= len(source), and source[Start:End] == Text.
func (e Entity) Validate(source string) error {
	if e.Start < 0 || e.Start >= e.End || e.End > len(source) {
		return fmt.Errorf("entity %q: invalid span [%d:%d) for source of length %d", e.Label, e.Start, e.End, len(source))
	}
	if source[e.Start:e.End] != e.Text {
		return fmt.Errorf("entity %q: text %q does not match source[%d:%d] = %q", e.Label, e.Text, e.Start, e.End, source[e.Start:e.End])
	}
	return nil
}

// ThreadID is a 128-bit conversation identifier. All mapping and
// conversation state is scoped to one.
type ThreadID [16]byte

// String renders the ThreadID as a lowercase hex string, used verbatim as
// the "<thread>" segment of the key schema in spec §6.
func (t ThreadID) String() string {
	return hex.EncodeToString(t[:])
}

// IsZero reports whether t is the zero ThreadID, used by callers that want
// to distinguish "no thread" from a real (possibly hash-derived) one.
func (t ThreadID) IsZero() bool {
	return t == ThreadID{}
}

// ThreadIDFromHex parses a 32-character hex string into a ThreadID.
func ThreadIDFromHex(s string) (ThreadID, error) {
	var t ThreadID
	b, err := hex.DecodeString(s)
	if err != nil {
		return t, fmt.Errorf("thread id %q is not valid hex: %w", s, err)
	}
	if len(b) != len(t) {
		return t, fmt.Errorf("thread id %q decodes to %d bytes, want %d", s, len(b), len(t))
	}
	copy(t[:], b)
	return t, nil
}

// Mapping is the per-thread bidirectional relation between an original
// entity value and the placeholder substituted for it, plus the label it
// was detected under.
type Mapping struct {
	Original    string
	Label       string
	Placeholder string
}
