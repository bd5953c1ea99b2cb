package vault

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const shardCount = 16

type shard struct {
	mu      sync.Mutex
	records map[string]*Record
}

// MemoryVault is an in-memory Vault with per-hash mutual exclusion via
// hash-prefix sharded locks. Semantics are identical to the durable
// backends; throughput is just better than a single global lock.
type MemoryVault struct {
	shards [shardCount]*shard
	clock  func() time.Time
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	v := &MemoryVault{clock: time.Now}
	for i := range v.shards {
		v.shards[i] = &shard{records: make(map[string]*Record)}
	}
	return v
}

// WithClock overrides the clock for deterministic testing.
func (v *MemoryVault) WithClock(clock func() time.Time) *MemoryVault {
	v.clock = clock
	return v
}

func (v *MemoryVault) shardFor(hash string) *shard {
	// First hex nibble selects the shard; hashes are validated lowercase hex
	// before this point.
	c := hash[0]
	var idx byte
	switch {
	case c >= '0' && c <= '9':
		idx = c - '0'
	default:
		idx = c - 'a' + 10
	}
	return v.shards[idx%shardCount]
}

func (v *MemoryVault) Store(ctx context.Context, hash string, recordType RecordType) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	hash = normalizeHash(hash)
	if err := validate(hash, recordType); err != nil {
		return "", false, err
	}

	s := v.shardFor(hash)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[hash]; ok {
		return existing.RecordID, true, nil
	}

	rec := &Record{
		RecordID:  uuid.New().String(),
		Hash:      hash,
		Timestamp: v.clock(),
		Type:      recordType,
	}
	s.records[hash] = rec
	return rec.RecordID, false, nil
}

func (v *MemoryVault) LookupByHash(ctx context.Context, hash string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash = normalizeHash(hash)
	if len(hash) == 0 {
		return nil, nil
	}

	s := v.shardFor(hash)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hash]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
