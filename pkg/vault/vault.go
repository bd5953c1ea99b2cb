// Package vault is the write-once evidence store and custody ledger.
//
//   - Records are keyed exclusively by hex-encoded digest
//   - Store is append-only and idempotent: a second store of the same hash is
//     a no-op returning the original record ID
//   - No delete and no update exist in the public contract
//
// The vault and the sealing engine are the only writers of sealed data;
// everything downstream is read-only over these structures.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caseproof/custody-core/pkg/hashing"
)

// RecordType is the closed set of record categories the vault accepts.
type RecordType string

const (
	RecordTypeForensic          RecordType = "forensic"
	RecordTypeAdvisory          RecordType = "advisory"
	RecordTypeSessionTranscript RecordType = "session_transcript"
)

// ErrInvalidRecord rejects malformed hashes and unknown record types before
// they reach storage.
var ErrInvalidRecord = errors.New("invalid vault record")

// Record is a write-once vault entry. RecordID and Timestamp are assigned by
// the vault at store time.
type Record struct {
	RecordID  string     `json:"recordId"`
	Hash      string     `json:"hash"`
	Timestamp time.Time  `json:"timestamp"`
	Type      RecordType `json:"type"`
}

// Vault is the append-only store contract. Concurrent stores for distinct
// hashes are independent; concurrent stores for the same hash serialize so
// exactly one record ID is ever created.
type Vault interface {
	// Store records a hash. Idempotent: if the hash is already present the
	// existing record ID is returned with duplicate=true and nothing is
	// written.
	Store(ctx context.Context, hash string, recordType RecordType) (recordID string, duplicate bool, err error)

	// LookupByHash returns the record for a hash, or nil if absent.
	LookupByHash(ctx context.Context, hash string) (*Record, error)
}

// normalizeHash lowercases a hex digest so lookups are case-insensitive and
// every backend indexes the same key.
func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func validate(hash string, recordType RecordType) error {
	if !hashing.IsDigestHex(hash) {
		return fmt.Errorf("%w: hash is not a well-formed digest", ErrInvalidRecord)
	}
	switch recordType {
	case RecordTypeForensic, RecordTypeAdvisory, RecordTypeSessionTranscript:
		return nil
	default:
		return fmt.Errorf("%w: unknown record type %q", ErrInvalidRecord, recordType)
	}
}
