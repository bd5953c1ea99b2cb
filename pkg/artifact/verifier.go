// Package artifact verifies installed or distributed artifacts against a
// per-release anchor hash.
//
//   - A content mismatch is TAMPERED and fails closed
//   - An environment fault (missing file, unreadable stream, stuck read) is
//     VERIFICATION_FAILED, a distinct signal from tampering
//
// Verification streams the artifact in chunks; the whole file is never held
// in memory.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caseproof/custody-core/pkg/hashing"
)

// Status is the tri-state verdict of an artifact verification.
type Status string

const (
	StatusAuthentic          Status = "AUTHENTIC"
	StatusTampered           Status = "TAMPERED"
	StatusVerificationFailed Status = "VERIFICATION_FAILED"
)

// Fail-closed sentinels for gating sensitive paths on a verdict.
var (
	ErrTampered           = errors.New("artifact hash mismatch: content tampered")
	ErrVerificationFailed = errors.New("artifact verification failed: environment fault")
)

// IntegrityReport records a single verification. Never mutated once created;
// both hashes are surfaced so a third party can re-check the verdict by hand.
type IntegrityReport struct {
	CalculatedHash string    `json:"calculatedHash"`
	ExpectedHash   string    `json:"expectedHash"`
	IsAuthentic    bool      `json:"isAuthentic"`
	Status         Status    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

// Err maps the verdict onto the fail-closed error taxonomy. AUTHENTIC
// returns nil; anything else must abort sensitive processing in the caller.
func (r *IntegrityReport) Err() error {
	switch r.Status {
	case StatusAuthentic:
		return nil
	case StatusTampered:
		return fmt.Errorf("%w: calculated %s, expected %s", ErrTampered, r.CalculatedHash, r.ExpectedHash)
	default:
		return ErrVerificationFailed
	}
}

const defaultChunkSize = 64 * 1024

// DefaultReadTimeout bounds artifact reads so a stuck filesystem cannot hang
// the boot path.
const DefaultReadTimeout = 30 * time.Second

// Verifier hashes artifacts and compares against a fixed anchor. Stateless;
// safe for concurrent use.
type Verifier struct {
	anchor      Anchor
	readTimeout time.Duration
	clock       func() time.Time
	logger      *slog.Logger
}

// NewVerifier creates a verifier for the given anchor.
func NewVerifier(anchor Anchor) *Verifier {
	return &Verifier{
		anchor:      anchor,
		readTimeout: DefaultReadTimeout,
		clock:       time.Now,
		logger:      slog.Default().With("component", "artifact"),
	}
}

// WithReadTimeout overrides the read timeout.
func (v *Verifier) WithReadTimeout(d time.Duration) *Verifier {
	v.readTimeout = d
	return v
}

// WithClock overrides the clock for deterministic testing.
func (v *Verifier) WithClock(clock func() time.Time) *Verifier {
	v.clock = clock
	return v
}

// Verify hashes the artifact at path in chunks and compares the digest to
// the anchor, case-insensitively. The report always carries both hashes.
func (v *Verifier) Verify(ctx context.Context, path string) *IntegrityReport {
	report := &IntegrityReport{
		ExpectedHash: v.anchor.ExpectedHash,
		Timestamp:    v.clock(),
	}

	calculated, err := v.hashFile(ctx, path)
	if err != nil {
		v.logger.Error("artifact read failed", "path", path, "error", err)
		report.Status = StatusVerificationFailed
		return report
	}
	report.CalculatedHash = calculated

	if hashing.EqualHex(calculated, v.anchor.ExpectedHash) {
		report.IsAuthentic = true
		report.Status = StatusAuthentic
		return report
	}

	v.logger.Error("artifact tampered",
		"path", path,
		"calculated", calculated,
		"expected", v.anchor.ExpectedHash,
		"release", v.anchor.ReleaseVersion)
	report.Status = StatusTampered
	return report
}

// hashFile streams the artifact through SHA-256. The read runs on its own
// goroutine so a hung filesystem surfaces as a timeout instead of blocking
// the caller past the deadline.
func (v *Verifier) hashFile(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, v.readTimeout)
	defer cancel()

	type result struct {
		sum string
		err error
	}
	done := make(chan result, 1)

	go func() {
		f, err := os.Open(path)
		if err != nil {
			done <- result{err: fmt.Errorf("open artifact: %w", err)}
			return
		}
		defer func() { _ = f.Close() }()

		h := sha256.New()
		buf := make([]byte, defaultChunkSize)
		for {
			if err := ctx.Err(); err != nil {
				done <- result{err: err}
				return
			}
			n, err := f.Read(buf)
			if n > 0 {
				h.Write(buf[:n])
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				done <- result{err: fmt.Errorf("read artifact: %w", err)}
				return
			}
		}
		done <- result{sum: hex.EncodeToString(h.Sum(nil))}
	}()

	select {
	case r := <-done:
		return r.sum, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("artifact read timed out: %w", ctx.Err())
	}
}
