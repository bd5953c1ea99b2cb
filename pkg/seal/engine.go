// Package seal implements the triple-hash sealing of forensic work products.
//
//   - contentHash and metadataHash cover what was found and how it was labeled
//   - sealHash is the keyed component, binding both to a seal key and timestamp
//   - finalHash is the externally published tamper-evidence value
//
// Sealing is a pure function of its inputs plus key material; re-sealing the
// same report with the same key reproduces every hash bit for bit.
package seal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/caseproof/custody-core/pkg/hashing"
)

// Separator joins hash components inside the combined and final strings.
// Changing it breaks interoperability with previously issued seals.
const Separator = "|"

// metadataDelimiter joins serialized key=value pairs.
const metadataDelimiter = ";"

// Seal is the immutable hash bundle that makes a report tamper-evident.
// FinalHash is the externally verifiable value; SealHash is the keyed
// component. The seal key itself is never stored alongside the report.
type Seal struct {
	ContentHash  string    `json:"contentHash"`
	MetadataHash string    `json:"metadataHash"`
	SealHash     string    `json:"sealHash"`
	FinalHash    string    `json:"finalHash"`
	Timestamp    time.Time `json:"timestamp"`
	SealKeyID    string    `json:"sealKeyId"`
}

// Engine computes seals. Stateless with respect to shared memory; safe for
// concurrent use across independent reports.
type Engine struct {
	keys   KeyProvider
	logger *slog.Logger
}

// NewEngine creates a sealing engine over the given key provider.
func NewEngine(keys KeyProvider) *Engine {
	return &Engine{
		keys:   keys,
		logger: slog.Default().With("component", "seal"),
	}
}

// SerializeMetadata produces the canonical key=value serialization of a
// metadata map: keys sorted lexicographically, pairs joined by a fixed
// delimiter. Two maps with identical pairs serialize identically regardless
// of insertion order.
func SerializeMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+metadata[k])
	}
	return strings.Join(pairs, metadataDelimiter)
}

// Seal computes the triple-hash seal for a report. The timestamp is
// normalized to UTC and participates in the keyed component, so backdating
// a sealed report is detectable. Nothing is persisted; callers commit the
// seal to the vault themselves, which keeps abandonment side-effect free.
func (e *Engine) Seal(ctx context.Context, content []byte, metadata map[string]string, timestamp time.Time) (*Seal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sealing abandoned: %w", err)
	}

	contentHash := hashing.Digest(content)
	metadataHash := hashing.DigestString(SerializeMetadata(metadata))

	ts := timestamp.UTC()
	combined := contentHash + Separator + metadataHash + Separator + ts.Format(time.RFC3339)

	key, keyID, err := e.keys.SealKey([]byte(contentHash))
	if err != nil {
		return nil, fmt.Errorf("seal key unavailable: %w", err)
	}
	sealHash := hashing.MAC([]byte(combined), key)

	finalHash := hashing.DigestString(contentHash + Separator + metadataHash + Separator + sealHash)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sealing abandoned: %w", err)
	}

	e.logger.Debug("report sealed", "final_hash", finalHash, "seal_key_id", keyID)

	return &Seal{
		ContentHash:  contentHash,
		MetadataHash: metadataHash,
		SealHash:     sealHash,
		FinalHash:    finalHash,
		Timestamp:    ts,
		SealKeyID:    keyID,
	}, nil
}

// Verify recomputes the content and metadata hashes from a presented report
// and folds them with the recorded SealHash into a candidate final hash.
// Any modification to content, metadata, or the recorded keyed component
// changes the result. Comparison against FinalHash is case-insensitive.
//
// This is the single canonical verification formula: content and metadata
// are recomputed from the presented report, the keyed component is taken
// from the seal, and the timestamp is covered transitively because it was
// MAC'd into SealHash at sealing time.
func (e *Engine) Verify(content []byte, metadata map[string]string, s *Seal) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("no seal presented")
	}
	if !hashing.IsDigestHex(strings.ToLower(s.FinalHash)) {
		return false, fmt.Errorf("recorded final hash is malformed")
	}

	contentHash := hashing.Digest(content)
	metadataHash := hashing.DigestString(SerializeMetadata(metadata))
	candidate := hashing.DigestString(contentHash + Separator + metadataHash + Separator + s.SealHash)

	return hashing.EqualHex(candidate, s.FinalHash), nil
}
