package seal

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/caseproof/custody-core/pkg/hashing"
)

// KeyProvider supplies the keyed material for a seal. Implementations decide
// whether keys are fresh per report or derived from a master secret; either
// way the key is the only non-deterministic input to sealing.
type KeyProvider interface {
	// SealKey returns the key to MAC a report with, plus a stable identifier
	// recorded on the Seal. info binds the key to the report being sealed
	// (typically its content hash); providers may ignore it.
	SealKey(info []byte) (key []byte, keyID string, err error)
}

// RandomKeyProvider draws a fresh 512-bit key per seal from crypto/rand.
// Key IDs are random UUIDs; the key itself is never persisted here.
type RandomKeyProvider struct{}

func NewRandomKeyProvider() *RandomKeyProvider {
	return &RandomKeyProvider{}
}

func (p *RandomKeyProvider) SealKey(_ []byte) ([]byte, string, error) {
	key, err := hashing.NewSealKey()
	if err != nil {
		return nil, "", err
	}
	return key, uuid.New().String(), nil
}

// DerivedKeyProvider derives per-report seal keys from a master secret with
// HKDF-SHA256. Given the same master and the same report info, the derived
// key is reproducible, which lets an operator re-verify a seal end to end
// without storing per-report keys.
type DerivedKeyProvider struct {
	master []byte
	keyID  string
}

// NewDerivedKeyProvider creates a provider over a master secret. The key ID
// is a fingerprint of the master, not the master itself.
func NewDerivedKeyProvider(master []byte) (*DerivedKeyProvider, error) {
	if len(master) < 32 {
		return nil, fmt.Errorf("master key too short: need at least 32 bytes, got %d", len(master))
	}
	fp := sha256.Sum256(master)
	return &DerivedKeyProvider{
		master: master,
		keyID:  fmt.Sprintf("hkdf-%x", fp[:8]),
	}, nil
}

func (p *DerivedKeyProvider) SealKey(info []byte) ([]byte, string, error) {
	r := hkdf.New(sha256.New, p.master, nil, info)
	key := make([]byte, hashing.SealKeyBytes)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, "", fmt.Errorf("hkdf expansion failed: %w", err)
	}
	return key, p.keyID, nil
}

// StaticKeyProvider returns a fixed key and ID. Test double; deterministic
// seals across runs.
type StaticKeyProvider struct {
	Key []byte
	ID  string
}

func (p *StaticKeyProvider) SealKey(_ []byte) ([]byte, string, error) {
	return p.Key, p.ID, nil
}
