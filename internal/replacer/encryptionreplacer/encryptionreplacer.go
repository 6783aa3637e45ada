// Package encryptionreplacer implements the "encryption" Replacer
// strategy: authenticated-encryption ciphertext of the original under a
// key derived from ThreadId, requiring no Entity Store write. Pairs with
// internal/entity/encryptionstore, sharing key derivation via
// internal/cryptutil.
package encryptionreplacer

import (
	"context"
	"fmt"

	"github.com/hfi/privacy-gateway/internal/entity/encryptionstore"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/replacer"
)

// Strategy is the encryption Replacer strategy. It delegates the actual
// seal/open operations to the paired encryptionstore.Store, since both
// need the same thread-derived key and the store already owns that
// derivation.
type Strategy struct {
	store *encryptionstore.Store
}

// New returns a Strategy backed by store.
func New(store *encryptionstore.Store) *Strategy {
	return &Strategy{store: store}
}

// Name implements replacer.Strategy.
func (s *Strategy) Name() string { return "encryption" }

// SupportedLabels implements replacer.Strategy.
func (s *Strategy) SupportedLabels() []string { return []string{replacer.AnyLabel} }

// CreatePlaceholder encrypts the entity's text under a ThreadId-derived
// key; the ciphertext itself becomes the placeholder, so GetOriginal can
// decrypt it in-band without any stored mapping.
func (s *Strategy) CreatePlaceholder(ctx context.Context, thread domain.ThreadID, e domain.Entity) (string, error) {
	placeholder, err := s.store.Encrypt(thread, e.Text)
	if err != nil {
		return "", fmt.Errorf("encryptionreplacer: %w", err)
	}
	return placeholder, nil
}
