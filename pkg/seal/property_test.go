//go:build property
// +build property

// Property-based tests for sealing determinism and metadata-order
// independence.
package seal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSealDeterminismProperty verifies Seal(x) == Seal(x) for arbitrary
// content and metadata under a fixed key.
func TestSealDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	e := NewEngine(&StaticKeyProvider{Key: bytes.Repeat([]byte{0x42}, 64), ID: "prop-key"})
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	properties.Property("sealing is deterministic", prop.ForAll(
		func(content string, keys []string, values []string) bool {
			metadata := make(map[string]string)
			for i := 0; i < len(keys) && i < len(values); i++ {
				metadata[keys[i]] = values[i]
			}

			first, err1 := e.Seal(context.Background(), []byte(content), metadata, ts)
			second, err2 := e.Seal(context.Background(), []byte(content), metadata, ts)
			if err1 != nil || err2 != nil {
				return false
			}
			return first.FinalHash == second.FinalHash && first.SealHash == second.SealHash
		},
		gen.AnyString(),
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.AnyString()),
	))

	properties.Property("tampering changes the final hash", prop.ForAll(
		func(content string, flip uint8) bool {
			raw := []byte(content)
			if len(raw) == 0 {
				return true
			}
			s, err := e.Seal(context.Background(), raw, nil, ts)
			if err != nil {
				return false
			}
			tampered := append([]byte(nil), raw...)
			tampered[int(flip)%len(tampered)] ^= 0x01
			if bytes.Equal(tampered, raw) {
				return true
			}
			ok, err := e.Verify(tampered, nil, s)
			return err == nil && !ok
		},
		gen.AnyString(),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
