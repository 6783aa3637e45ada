// Package threadid canonicalises caller-supplied thread keys into the
// 128-bit domain.ThreadID used to scope all mapping and conversation state
// (component F of the privacy pipeline).
package threadid

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// Normalise implements the thread-identity rules from spec §4.5:
//   - if key parses as a 128-bit identifier (32 hex chars), use it directly;
//   - otherwise derive one by hashing key to a 128-bit value, a pure and
//     stable transform so the same key always yields the same ThreadID;
//   - an empty key has no stable identity: the caller gets a fresh random
//     ThreadID and persisted set to false so the Wrapper knows not to touch
//     the Conversation Store for this call.
func Normalise(key string) (id domain.ThreadID, persisted bool, err error) {
	if key == "" {
		var fresh domain.ThreadID
		if _, err := rand.Read(fresh[:]); err != nil {
			return domain.ThreadID{}, false, err
		}
		return fresh, false, nil
	}

	if parsed, err := domain.ThreadIDFromHex(key); err == nil {
		return parsed, true, nil
	}

	return derive(key), true, nil
}

// derive hashes an arbitrary caller key to a 128-bit ThreadID. SHA-256 is
// used instead of the original Python implementation's MD5-keyed UUID(v3)
// derivation; both are pure functions of the key, but SHA-256 avoids
// depending on a broken digest for anything, even a non-adversarial one.
func derive(key string) domain.ThreadID {
	sum := sha256.Sum256([]byte(key))
	var id domain.ThreadID
	copy(id[:], sum[:len(id)])
	return id
}
