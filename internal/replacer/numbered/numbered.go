// Package numbered implements the default Replacer strategy: placeholders
// of the form "[LABEL_NN]", where NN is a zero-padded per-thread,
// per-label counter obtained from the Entity Store. Grounded on the
// teacher's pkg/placeholder.Generator pattern-matching approach, adapted
// from a fixed secret prefix to a label-derived one.
package numbered

import (
	"context"
	"fmt"
	"strings"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
	"github.com/hfi/privacy-gateway/internal/replacer"
)

// Strategy is the numbered-placeholder Replacer strategy.
type Strategy struct {
	store entity.Store
}

// New returns a Strategy backed by store, which must support
// IncLabelCounter (the Redis and bbolt backends do; the encryption-native
// backend does not and cannot be paired with this strategy).
func New(store entity.Store) *Strategy {
	return &Strategy{store: store}
}

// Name implements replacer.Strategy.
func (s *Strategy) Name() string { return "numbered" }

// SupportedLabels implements replacer.Strategy: numbered placeholders work
// for any label, since the label itself becomes part of the placeholder.
func (s *Strategy) SupportedLabels() []string { return []string{replacer.AnyLabel} }

// CreatePlaceholder mints "[LABEL_NN]". Label normalization is upper snake
// case; per spec §9's open question this is intentionally NOT
// disambiguated further, so "phone number" and "phone_number" collide by
// design and share one counter.
func (s *Strategy) CreatePlaceholder(ctx context.Context, thread domain.ThreadID, e domain.Entity) (string, error) {
	label := normalizeLabel(e.Label)
	n, err := s.store.IncLabelCounter(ctx, thread, label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s_%02d]", label, n), nil
}

func normalizeLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(label) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
