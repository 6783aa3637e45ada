// Package cryptutil derives per-thread symmetric keys and performs
// authenticated encryption on their behalf. It backs both the
// encryption-native Entity Store and the "encryption" and "hash" Replacer
// strategies (spec §4.1, §4.4), so key derivation lives in one place.
package cryptutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// DeriveKey expands a master secret into a 32-byte AES-256 key bound to a
// thread and a purpose string (so the same master secret can serve
// independent encryption and HMAC keys without cross-use).
func DeriveKey(master []byte, thread domain.ThreadID, purpose string) ([]byte, error) {
	h := hkdf.New(sha256.New, master, thread[:], []byte(purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("deriving key for purpose %q: %w", purpose, err)
	}
	return key, nil
}

// Seal authenticated-encrypts plaintext under key, returning a
// base64url-encoded nonce||ciphertext blob safe to embed in a placeholder.
func Seal(key, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func Open(key []byte, blob string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// HMAC returns a base64url-encoded HMAC-SHA256 digest of data under key,
// used by the "hash" Replacer strategy to compute original XOR ThreadID in
// the sense spec §4.4 intends: a stable digest that differs per thread.
func HMAC(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
