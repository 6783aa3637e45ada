// Package replacer implements the Replacer contract (component D): the
// exact replace/restore splice algorithms from the specification, shared by
// every strategy, which differ only in how a placeholder is created.
package replacer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
)

// ErrUnsupportedEntity is returned when a strategy is asked to replace an
// entity whose label it does not declare support for.
var ErrUnsupportedEntity = errors.New("replacer: unsupported entity label")

// ErrOverlappingEntities is returned when entities passed to Replace are
// not non-overlapping and sorted by start, which the algorithm requires.
var ErrOverlappingEntities = errors.New("replacer: overlapping entity spans")

// AnyLabel is the sentinel a Strategy returns from SupportedLabels to mean
// "every label is supported", the spec's "ANY" supported-label set.
const AnyLabel = "*"

// InlineRestorer is implemented by Entity Store backends that cannot list
// their placeholders (entity.ErrUnsupportedByBackend from
// ListPlaceholders) but can still restore a text in one pass, because the
// placeholder itself carries enough information to recover the original
// without a lookup — the encryption-native backend being the only current
// example.
type InlineRestorer interface {
	RestoreInline(ctx context.Context, thread domain.ThreadID, text string) (string, error)
}

// Strategy is the strategy-specific half of a Replacer: how to mint a new
// placeholder for an entity, and what labels it supports. CreatePlaceholder
// is a pure function of (thread, entity) for the hash strategy; others
// consult external state or randomness (numbered uses the Entity Store's
// counter; pseudonym uses a seeded generator; encryption draws a fresh
// random nonce on every call).
type Strategy interface {
	// Name identifies the strategy, used in config and logging.
	Name() string

	// SupportedLabels returns the entity labels this strategy can replace,
	// or []string{AnyLabel} to accept everything.
	SupportedLabels() []string

	// CreatePlaceholder mints a new placeholder for e within thread.
	CreatePlaceholder(ctx context.Context, thread domain.ThreadID, e domain.Entity) (string, error)
}

// Replacer pairs a Strategy with the Entity Store it records mappings in
// (or, for the encryption-native store, defers to in-band decryption).
type Replacer struct {
	strategy Strategy
	store    entity.Store
}

// New builds a Replacer from a strategy and the store it should use for
// deduplication and restoration.
func New(strategy Strategy, store entity.Store) *Replacer {
	return &Replacer{strategy: strategy, store: store}
}

func (r *Replacer) supports(label string) bool {
	for _, l := range r.strategy.SupportedLabels() {
		if l == AnyLabel || l == label {
			return true
		}
	}
	return false
}

// Replace implements the replacement algorithm from spec §4.4 exactly:
// entities are processed in the given order (never reordered), a running
// offset tracks the length delta between redacted and original text, and
// each entity is spliced in place using that offset. entities must be
// non-overlapping and sorted by Start; Replace returns
// ErrOverlappingEntities otherwise.
func (r *Replacer) Replace(ctx context.Context, thread domain.ThreadID, text string, entities []domain.Entity) (string, error) {
	prevEnd := 0
	for _, e := range entities {
		if e.Start < prevEnd {
			return "", ErrOverlappingEntities
		}
		if !r.supports(e.Label) {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedEntity, e.Label)
		}
		prevEnd = e.End
	}

	offset := 0
	for _, e := range entities {
		placeholder, err := r.store.GetPlaceholder(ctx, thread, e.Text, e.Label)
		if errors.Is(err, entity.ErrNotFound) {
			placeholder, err = r.strategy.CreatePlaceholder(ctx, thread, e)
			if err != nil {
				return "", fmt.Errorf("replacer: creating placeholder: %w", err)
			}
			if err := r.store.Put(ctx, thread, domain.Mapping{Original: e.Text, Label: e.Label, Placeholder: placeholder}); err != nil {
				return "", fmt.Errorf("replacer: storing mapping: %w", err)
			}
		} else if err != nil {
			return "", fmt.Errorf("replacer: looking up placeholder: %w", err)
		}

		start, end := e.Start+offset, e.End+offset
		text = text[:start] + placeholder + text[end:]
		offset += len(placeholder) - (e.End - e.Start)
	}
	return text, nil
}

// Restore implements the restoration algorithm from spec §4.4: fetch every
// mapping for the thread, sort descending by placeholder length so a
// placeholder that is a prefix of a longer one (e.g. "PERSON_1" of
// "PERSON_10") is substituted only after the longer one, then replace every
// occurrence of each placeholder with its
// stored original. Placeholders absent from text are skipped silently.
func (r *Replacer) Restore(ctx context.Context, thread domain.ThreadID, text string) (string, error) {
	mappings, err := r.store.ListPlaceholders(ctx, thread)
	if errors.Is(err, entity.ErrUnsupportedByBackend) {
		if inline, ok := r.store.(InlineRestorer); ok {
			return inline.RestoreInline(ctx, thread, text)
		}
		return "", fmt.Errorf("replacer: backend cannot list placeholders and has no inline restore path: %w", err)
	}
	if err != nil {
		return "", fmt.Errorf("replacer: listing placeholders: %w", err)
	}

	sort.Slice(mappings, func(i, j int) bool {
		return len(mappings[i].Placeholder) > len(mappings[j].Placeholder)
	})

	for _, m := range mappings {
		if m.Placeholder == "" {
			continue
		}
		text = strings.ReplaceAll(text, m.Placeholder, m.Original)
	}
	return text, nil
}
