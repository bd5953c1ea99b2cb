package vault

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caseproof/custody-core/pkg/canonical"
)

// CustodyAction is the closed set of actions recorded in a chain of custody.
type CustodyAction string

const (
	ActionUploaded  CustodyAction = "UPLOADED"
	ActionProcessed CustodyAction = "PROCESSED"
	ActionSealed    CustodyAction = "SEALED"
	ActionExported  CustodyAction = "EXPORTED"
)

// IntegrityStatus is derived from the entries; it is never stored.
type IntegrityStatus string

const (
	StatusAllVerified    IntegrityStatus = "ALL_VERIFIED"
	StatusIssuesDetected IntegrityStatus = "ISSUES_DETECTED"
)

// CustodyEntry records one action applied to evidence. Entries are
// hash-chained to their predecessor; EntryHash covers the entry content plus
// PrevHash, so any rewrite of history breaks the chain.
type CustodyEntry struct {
	ID                   string        `json:"id"`
	Timestamp            time.Time     `json:"timestamp"`
	Action               CustodyAction `json:"action"`
	Hash                 string        `json:"hash"`
	ActorID              string        `json:"actorId"`
	IntegrityCheckPassed bool          `json:"integrityCheckPassed"`
	PrevHash             string        `json:"prevHash"`
	EntryHash            string        `json:"entryHash"`
}

// CustodyReport is the ordered, append-only list of custody entries.
type CustodyReport struct {
	Entries []CustodyEntry `json:"entries"`
}

// ChainOfTrust links an artifact hash, a case, and a device to the custody
// record of the evidence. Append-only; entries are never mutated or removed.
type ChainOfTrust struct {
	mu           sync.RWMutex
	artifactHash string
	caseID       string
	deviceID     string
	entries      []CustodyEntry
	headHash     string
	clock        func() time.Time
}

const custodyGenesis = "genesis"

// NewChainOfTrust starts an empty custody chain for an artifact.
func NewChainOfTrust(artifactHash, caseID, deviceID string) *ChainOfTrust {
	return &ChainOfTrust{
		artifactHash: artifactHash,
		caseID:       caseID,
		deviceID:     deviceID,
		headHash:     custodyGenesis,
		clock:        time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (c *ChainOfTrust) WithClock(clock func() time.Time) *ChainOfTrust {
	c.clock = clock
	return c
}

// ArtifactHash returns the anchored artifact hash.
func (c *ChainOfTrust) ArtifactHash() string { return c.artifactHash }

// CaseID returns the case identifier.
func (c *ChainOfTrust) CaseID() string { return c.caseID }

// DeviceID returns the device identifier.
func (c *ChainOfTrust) DeviceID() string { return c.deviceID }

type custodyHashInput struct {
	Seq     int    `json:"seq"`
	Action  string `json:"action"`
	Hash    string `json:"hash"`
	ActorID string `json:"actor_id"`
	Passed  bool   `json:"passed"`
	Prev    string `json:"prev"`
}

// Append records an action. Returns the appended entry.
func (c *ChainOfTrust) Append(action CustodyAction, hash, actorID string, integrityCheckPassed bool) (*CustodyEntry, error) {
	switch action {
	case ActionUploaded, ActionProcessed, ActionSealed, ActionExported:
	default:
		return nil, fmt.Errorf("unknown custody action %q", action)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seq := len(c.entries) + 1
	entryHash, err := canonical.Hash(custodyHashInput{
		Seq:     seq,
		Action:  string(action),
		Hash:    hash,
		ActorID: actorID,
		Passed:  integrityCheckPassed,
		Prev:    c.headHash,
	})
	if err != nil {
		return nil, fmt.Errorf("custody entry hash failed: %w", err)
	}

	entry := CustodyEntry{
		ID:                   uuid.New().String(),
		Timestamp:            c.clock(),
		Action:               action,
		Hash:                 hash,
		ActorID:              actorID,
		IntegrityCheckPassed: integrityCheckPassed,
		PrevHash:             c.headHash,
		EntryHash:            entryHash,
	}

	c.entries = append(c.entries, entry)
	c.headHash = entryHash

	cp := entry
	return &cp, nil
}

// Report returns a copy of the custody record.
func (c *ChainOfTrust) Report() CustodyReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]CustodyEntry, len(c.entries))
	copy(entries, c.entries)
	return CustodyReport{Entries: entries}
}

// IntegrityStatus derives the ledger status: ALL_VERIFIED iff every entry
// passed its integrity check.
func (c *ChainOfTrust) IntegrityStatus() IntegrityStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if !e.IntegrityCheckPassed {
			return StatusIssuesDetected
		}
	}
	return StatusAllVerified
}

// Verify recomputes every entry hash and checks chain linkage end to end.
func (c *ChainOfTrust) Verify() (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prev := custodyGenesis
	for i, e := range c.entries {
		if e.PrevHash != prev {
			return false, fmt.Sprintf("chain broken at entry %d: expected prev %s, got %s", i+1, prev, e.PrevHash)
		}
		computed, err := canonical.Hash(custodyHashInput{
			Seq:     i + 1,
			Action:  string(e.Action),
			Hash:    e.Hash,
			ActorID: e.ActorID,
			Passed:  e.IntegrityCheckPassed,
			Prev:    e.PrevHash,
		})
		if err != nil {
			return false, fmt.Sprintf("failed to rehash entry %d", i+1)
		}
		if computed != e.EntryHash {
			return false, fmt.Sprintf("hash mismatch at entry %d", i+1)
		}
		prev = e.EntryHash
	}
	return true, "chain verified"
}

// Head returns the current chain head hash.
func (c *ChainOfTrust) Head() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headHash
}
