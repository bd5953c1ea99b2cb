package artifact

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/caseproof/custody-core/pkg/hashing"
)

// Anchor is the per-release integrity reference an artifact is verified
// against. It is supplied as configuration, fixed for a given release, and
// auditable: a third party re-hashing the shipped artifact must reproduce
// ExpectedHash exactly.
type Anchor struct {
	ExpectedHash   string `json:"expected_hash" yaml:"expected_hash"`
	ReleaseVersion string `json:"release_version" yaml:"release_version"`
}

// NewAnchor validates and normalizes an anchor. The expected hash must be a
// well-formed digest (stored lowercase); the release version must parse as
// semver so release provenance stays machine-checkable.
func NewAnchor(expectedHash, releaseVersion string) (Anchor, error) {
	normalized := strings.ToLower(strings.TrimSpace(expectedHash))
	if !hashing.IsDigestHex(normalized) {
		return Anchor{}, fmt.Errorf("anchor hash is not a well-formed digest")
	}
	if _, err := semver.NewVersion(releaseVersion); err != nil {
		return Anchor{}, fmt.Errorf("anchor release version %q is not semver: %w", releaseVersion, err)
	}
	return Anchor{
		ExpectedHash:   normalized,
		ReleaseVersion: releaseVersion,
	}, nil
}
