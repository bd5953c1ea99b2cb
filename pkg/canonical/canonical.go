// Package canonical provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization so structurally identical values hash to identical digests.
// Vault payloads, custody entries, and audit events are content-addressed
// through this package.
package canonical

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/caseproof/custody-core/pkg/hashing"
)

// Marshal returns the RFC 8785 canonical JSON representation of v.
// Map key order, insertion order, and HTML escaping never affect the output.
func Marshal(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: pre-marshal failed: %w", err)
	}
	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonical: jcs transform failed: %w", err)
	}
	return out, nil
}

// Hash returns the SHA-256 hex digest of the canonical JSON form of v.
func Hash(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return hashing.Digest(b), nil
}
