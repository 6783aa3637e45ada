// Package encryptionstore implements entity.Store without any persistent
// mapping: the placeholder IS the ciphertext of the original, so restore
// only needs the per-thread key, never a lookup table. Grounded on spec
// §4.1's description of the encryption-native backend and sharing its key
// derivation with the "encryption" Replacer strategy via internal/cryptutil.
package encryptionstore

import (
	"context"
	"regexp"
	"strings"

	"github.com/hfi/privacy-gateway/internal/cryptutil"
	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
)

const keyPurpose = "privacy-gateway.entity-store.v1"

const (
	tokenPrefix = "[ENC_"
	tokenSuffix = "]"
)

var tokenPattern = regexp.MustCompile(`\[ENC_[A-Za-z0-9_\-]+\]`)

// wrap embeds ciphertext in a recognisable token so RestoreInline can find
// every encryption placeholder in a text without a stored placeholder
// list, which this backend does not keep.
func wrap(ciphertext string) string {
	return tokenPrefix + ciphertext + tokenSuffix
}

func unwrap(token string) string {
	return strings.TrimSuffix(strings.TrimPrefix(token, tokenPrefix), tokenSuffix)
}

// Store is the encryption-native entity.Store. It holds no per-mapping
// state at all; Master is the long-lived secret every thread key is derived
// from via HKDF.
type Store struct {
	Master []byte
}

// New returns a Store keyed by master, a caller-supplied secret (e.g. from
// config or a KMS-backed process). master is never persisted by the store
// itself.
func New(master []byte) *Store {
	return &Store{Master: master}
}

// Put is a no-op: there is nothing to persist, the placeholder already
// encodes the mapping.
func (s *Store) Put(ctx context.Context, thread domain.ThreadID, m domain.Mapping) error {
	return nil
}

// GetPlaceholder always returns entity.ErrNotFound: this backend keeps no
// forward lookup, so the Replacer treats every entity as new and mints its
// ciphertext through the strategy's CreatePlaceholder (see
// replacer/encryptionreplacer). AES-GCM draws a fresh nonce on every call,
// so the same original encrypted twice yields two different placeholders.
func (s *Store) GetPlaceholder(ctx context.Context, thread domain.ThreadID, original, label string) (string, error) {
	return "", entity.ErrNotFound
}

// GetOriginal decrypts placeholder using the thread-derived key, recovering
// the original in-band from the ciphertext instead of a lookup table.
func (s *Store) GetOriginal(ctx context.Context, thread domain.ThreadID, placeholder string) (domain.Mapping, error) {
	key, err := cryptutil.DeriveKey(s.Master, thread, keyPurpose)
	if err != nil {
		return domain.Mapping{}, err
	}
	plaintext, err := cryptutil.Open(key, unwrap(placeholder))
	if err != nil {
		return domain.Mapping{}, entity.ErrNotFound
	}
	return domain.Mapping{Original: string(plaintext), Placeholder: placeholder}, nil
}

// Encrypt is the backend-specific operation the encryption Replacer
// strategy uses to create a placeholder, since GetPlaceholder/Put cannot
// serve that role for a backend with no persistent mapping.
func (s *Store) Encrypt(thread domain.ThreadID, plaintext string) (string, error) {
	key, err := cryptutil.DeriveKey(s.Master, thread, keyPurpose)
	if err != nil {
		return "", err
	}
	ciphertext, err := cryptutil.Seal(key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return wrap(ciphertext), nil
}

// RestoreInline implements replacer's fallback path for backends that
// cannot list their placeholders: it scans text for every "[ENC_...]"
// token and decrypts each in place, skipping tokens that fail to decrypt
// (e.g. belonging to a different thread's key).
func (s *Store) RestoreInline(ctx context.Context, thread domain.ThreadID, text string) (string, error) {
	key, err := cryptutil.DeriveKey(s.Master, thread, keyPurpose)
	if err != nil {
		return "", err
	}
	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		plaintext, err := cryptutil.Open(key, unwrap(token))
		if err != nil {
			return token
		}
		return string(plaintext)
	}), nil
}

// IncLabelCounter is unsupported: there is no counter state to increment.
func (s *Store) IncLabelCounter(ctx context.Context, thread domain.ThreadID, label string) (int, error) {
	return 0, entity.ErrUnsupportedByBackend
}

// ListPlaceholders is unsupported: placeholders are never recorded, only
// produced and consumed in-band.
func (s *Store) ListPlaceholders(ctx context.Context, thread domain.ThreadID) ([]domain.Mapping, error) {
	return nil, entity.ErrUnsupportedByBackend
}

// Clear is a no-op; there is nothing to delete.
func (s *Store) Clear(ctx context.Context, thread domain.ThreadID) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
