// Package hashreplacer implements the "hash" Replacer strategy: a stable
// digest of original XOR ThreadId via HMAC-SHA256, sharing key derivation
// with encryptionreplacer through internal/cryptutil.
package hashreplacer

import (
	"context"
	"fmt"

	"github.com/hfi/privacy-gateway/internal/cryptutil"
	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/replacer"
)

const keyPurpose = "privacy-gateway.hash-replacer.v1"

// Strategy is the hash Replacer strategy.
type Strategy struct {
	Master []byte
}

// New returns a Strategy keyed by master, the long-lived secret every
// thread's HMAC key is derived from.
func New(master []byte) *Strategy {
	return &Strategy{Master: master}
}

// Name implements replacer.Strategy.
func (s *Strategy) Name() string { return "hash" }

// SupportedLabels implements replacer.Strategy: hashing works for any
// label since the output encodes no label-specific shape.
func (s *Strategy) SupportedLabels() []string { return []string{replacer.AnyLabel} }

// CreatePlaceholder returns "[LABEL_<digest>]", where digest is
// HMAC-SHA256(original, key) under a key derived from thread, giving a
// stable, irreversible-without-the-key value per spec §4.4.
func (s *Strategy) CreatePlaceholder(ctx context.Context, thread domain.ThreadID, e domain.Entity) (string, error) {
	key, err := cryptutil.DeriveKey(s.Master, thread, keyPurpose)
	if err != nil {
		return "", err
	}
	digest := cryptutil.HMAC(key, []byte(e.Text))
	return fmt.Sprintf("[%s_%s]", normalizeLabel(e.Label), digest), nil
}

func normalizeLabel(label string) string {
	out := make([]byte, 0, len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
