// Package detector defines the Detector contract (component C): a pure
// function from texts to per-text entity spans, with no knowledge of
// threads, placeholders, or storage.
package detector

import (
	"context"
	"errors"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// ErrDetectorUnavailable is returned once retries (where applicable) are
// exhausted and no entity list can be produced.
var ErrDetectorUnavailable = errors.New("detector: unavailable")

// ErrInvalidInput is returned for malformed input, e.g. a negative
// threshold or a nil texts slice.
var ErrInvalidInput = errors.New("detector: invalid input")

// Info describes a detector backend's capabilities, the "info" probe named
// in spec §6.
type Info struct {
	SupportedLabels  []string
	DefaultThreshold float64
	APIKeyRequired   bool
}

// Detector finds entities in a batch of independent texts. The i-th element
// of the result corresponds to the i-th element of texts; detectors never
// see cross-text state, so callers batch whatever they want scored
// together.
type Detector interface {
	// Detect returns one entity slice per input text. threshold is a
	// confidence cutoff in [0,1]; entities scoring below it are omitted. A
	// threshold of 0 uses the backend's default from Info.
	Detect(ctx context.Context, texts []string, threshold float64) ([][]domain.Entity, error)

	// Probe returns this backend's capabilities.
	Probe(ctx context.Context) (Info, error)
}
