// Package hashing wraps the digest and keyed-MAC primitives used across the
// sealing pipeline.
//
//   - Content digests are SHA-256, hex-encoded lowercase
//   - The keyed component of a seal is HMAC-SHA512
//   - Seal keys are 512-bit, drawn from crypto/rand
//
// Everything here is stateless and safe for concurrent use.
package hashing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestHexLen is the hex-encoded length of a content digest.
const DigestHexLen = sha256.Size * 2

// SealKeyBytes is the byte length of a seal key (512 bits).
const SealKeyBytes = 64

// Digest computes the SHA-256 digest of data and returns it hex-encoded.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// DigestString is a convenience wrapper over Digest for string input.
func DigestString(s string) string {
	return Digest([]byte(s))
}

// MAC computes the HMAC-SHA512 of data under key and returns it hex-encoded.
func MAC(data, key []byte) string {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// NewSealKey generates a fresh 512-bit seal key from a cryptographically
// secure source.
func NewSealKey() ([]byte, error) {
	key := make([]byte, SealKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("seal key generation failed: %w", err)
	}
	return key, nil
}

// EqualHex compares two hex digests case-insensitively in constant time.
// Malformed hex on either side compares unequal.
func EqualHex(a, b string) bool {
	ab, err := hex.DecodeString(strings.ToLower(a))
	if err != nil {
		return false
	}
	bb, err := hex.DecodeString(strings.ToLower(b))
	if err != nil {
		return false
	}
	if len(ab) != len(bb) {
		return false
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1
}

// IsDigestHex reports whether s is a well-formed hex encoding of a content
// digest: exact length, hex alphabet only.
func IsDigestHex(s string) bool {
	if len(s) != DigestHexLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
