package contract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caseproof/custody-core/pkg/hashing"
	"github.com/caseproof/custody-core/pkg/vault"
)

// MaxCategoryLen bounds finding categories and coordinate sources. Anything
// longer than "category + count" territory is treated as smuggled prose.
const MaxCategoryLen = 64

// maxCategoryWords rejects sentence-shaped values even when they fit the
// length ceiling.
const maxCategoryWords = 4

// Validator enforces the admission rules on a SealedSummary, in fixed order,
// short-circuiting on the first failure:
//
//  1. reportHash is a well-formed digest of the configured algorithm
//  2. integrityScore within [0,100]
//  3. actor identifiers are pseudonym hashes, not plaintext
//  4. finding/actor/coordinate fields hold categories, not sentences
//  5. the summary hash is present in the vault (custody), unless detached
type Validator struct {
	vault    vault.Vault
	detached bool
	logger   *slog.Logger
}

// NewValidator creates a validator backed by the given vault for the custody
// check.
func NewValidator(v vault.Vault) *Validator {
	return &Validator{
		vault:  v,
		logger: slog.Default().With("component", "contract"),
	}
}

// WithDetachedVerification skips the vault custody check, for verifying
// summaries outside a live vault (offline review, export checks).
func (v *Validator) WithDetachedVerification() *Validator {
	v.detached = true
	return v
}

// Validate runs the admission rules. On failure the returned error is a
// *Violation naming the rule only; raw field values are never echoed.
func (v *Validator) Validate(ctx context.Context, s *SealedSummary) error {
	if err := checkIntrinsic(s); err != nil {
		return err
	}

	// Rule 5: custody — the summary must already be vaulted
	if !v.detached {
		rec, err := v.vault.LookupByHash(ctx, s.ReportHash)
		if err != nil {
			return fmt.Errorf("custody check unavailable: %w", err)
		}
		if rec == nil {
			return violation(RuleCustody, "summary hash has no vault record")
		}
	}

	return nil
}

// checkIntrinsic runs rules 1-4, the ones decidable from the summary alone.
// NewSealedSummary applies them at construction; Validate re-applies them at
// the boundary so hand-built summaries get no free pass.
func checkIntrinsic(s *SealedSummary) error {
	if s == nil {
		return violation(RuleWireShape, "no summary presented")
	}

	// Rule 1: report hash shape
	if !hashing.IsDigestHex(strings.ToLower(s.ReportHash)) {
		return violation(RuleReportHash, "reportHash is not a %d-char hex digest", hashing.DigestHexLen)
	}

	// Rule 2: integrity score bounds
	if s.IntegrityScore < 0 || s.IntegrityScore > 100 {
		return violation(RuleIntegrityScore, "integrityScore outside [0,100]")
	}

	// Rule 3: actor pseudonymization
	for i, actor := range s.Actors {
		if !hashing.IsDigestHex(strings.ToLower(actor.PseudonymID)) {
			return violation(RuleActorPseudonym, "actor %d identifier is not a pseudonym hash", i)
		}
		if actor.ConsistencyScore < 0 || actor.ConsistencyScore > 1 {
			return violation(RuleActorPseudonym, "actor %d consistency score outside [0,1]", i)
		}
	}

	// Rule 4: no free text in findings or coordinate sources
	for i, f := range s.Findings {
		if err := checkCategoryField(fmt.Sprintf("finding %d category", i), f.Category); err != nil {
			return err
		}
		switch f.Severity {
		case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		default:
			return violation(RuleFieldLength, "finding %d severity outside the closed set", i)
		}
		if f.Confidence < 0 || f.Confidence > 1 {
			return violation(RuleFieldLength, "finding %d confidence outside [0,1]", i)
		}
		if f.EvidenceCount < 0 {
			return violation(RuleFieldLength, "finding %d evidence count negative", i)
		}
	}
	for i, c := range s.GPSCoordinates {
		if err := checkCategoryField(fmt.Sprintf("coordinate %d source", i), c.Source); err != nil {
			return err
		}
		if !c.InRange() {
			return violation(RuleCoordinateRange, "coordinate %d outside WGS84 bounds", i)
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return violation(RuleCoordinateRange, "coordinate %d confidence outside [0,1]", i)
		}
	}

	return nil
}

// checkCategoryField rejects values shaped like prose: over-long, quoted, or
// multi-word beyond a category's worth.
func checkCategoryField(name, value string) error {
	if value == "" {
		return violation(RuleFieldLength, "%s is empty", name)
	}
	if len(value) > MaxCategoryLen {
		return violation(RuleFieldLength, "%s exceeds %d chars", name, MaxCategoryLen)
	}
	if strings.ContainsAny(value, `"'`) {
		return violation(RuleFieldLength, "%s contains quoted material", name)
	}
	if len(strings.Fields(value)) > maxCategoryWords {
		return violation(RuleFieldLength, "%s reads like a sentence", name)
	}
	return nil
}
