package contract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/caseproof/custody-core/pkg/hashing"
	"github.com/caseproof/custody-core/pkg/vault"
)

func validSummary() *SealedSummary {
	return &SealedSummary{
		ReportHash:     hashing.DigestString("sealed report"),
		IntegrityScore: 92,
		Findings: []FindingSummary{
			{Category: "document_alteration", Severity: SeverityHigh, Confidence: 0.87, EvidenceCount: 3},
		},
		Actors: []ActorSummary{
			{PseudonymID: hashing.DigestString("actor-a"), ConsistencyScore: 0.95},
		},
		GPSCoordinates: []Coordinate{
			{Latitude: 24.4539, Longitude: 54.3773, Accuracy: 12, Source: "exif", Confidence: 0.8},
		},
		TripleVerificationStatus: "VERIFIED",
	}
}

func vaultedValidator(t *testing.T, s *SealedSummary) *Validator {
	t.Helper()
	v := vault.NewMemoryVault()
	if _, _, err := v.Store(context.Background(), s.ReportHash, vault.RecordTypeForensic); err != nil {
		t.Fatal(err)
	}
	return NewValidator(v)
}

func assertViolation(t *testing.T, err error, rule Rule) {
	t.Helper()
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected a contract violation, got %v", err)
	}
	if v.Rule != rule {
		t.Fatalf("expected rule %s, got %s", rule, v.Rule)
	}
}

func TestValidateAcceptsWellFormedSummary(t *testing.T) {
	s := validSummary()
	if err := vaultedValidator(t, s).Validate(context.Background(), s); err != nil {
		t.Fatalf("well-formed vaulted summary must pass, got %v", err)
	}
}

func TestValidateRejectsMalformedHash(t *testing.T) {
	s := validSummary()
	s.ReportHash = "abc123"
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	assertViolation(t, err, RuleReportHash)
}

func TestValidateRejectsOutOfRangeScore(t *testing.T) {
	s := validSummary()
	s.IntegrityScore = 150
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	assertViolation(t, err, RuleIntegrityScore)
}

func TestValidateRejectsPlaintextActorName(t *testing.T) {
	s := validSummary()
	s.Actors = append(s.Actors, ActorSummary{PseudonymID: "John Smith", ConsistencyScore: 0.5})
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	assertViolation(t, err, RuleActorPseudonym)
}

func TestValidateRejectsFreeTextCategory(t *testing.T) {
	s := validSummary()
	s.Findings[0].Category = strings.Repeat("the quick brown fox ", 10) // ~200 chars of prose
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	assertViolation(t, err, RuleFieldLength)
}

func TestValidateRejectsSentenceShapedCategory(t *testing.T) {
	s := validSummary()
	s.Findings[0].Category = "the document was clearly altered by hand"
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	assertViolation(t, err, RuleFieldLength)
}

func TestValidateRejectsQuotedExcerpt(t *testing.T) {
	s := validSummary()
	s.Findings[0].Category = `"signed here"`
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	assertViolation(t, err, RuleFieldLength)
}

func TestValidateRejectsOutOfRangeCoordinate(t *testing.T) {
	s := validSummary()
	s.GPSCoordinates[0].Latitude = 97.5
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	assertViolation(t, err, RuleCoordinateRange)
}

func TestValidateCustodyCheck(t *testing.T) {
	s := validSummary()

	// 1. Not vaulted -> custody violation
	err := NewValidator(vault.NewMemoryVault()).Validate(context.Background(), s)
	assertViolation(t, err, RuleCustody)

	// 2. Detached mode skips the custody check
	if err := NewValidator(vault.NewMemoryVault()).WithDetachedVerification().Validate(context.Background(), s); err != nil {
		t.Fatalf("detached validation must skip custody, got %v", err)
	}
}

func TestValidateRuleOrderShortCircuits(t *testing.T) {
	// Both the hash and the score are bad; rule 1 must fire first.
	s := validSummary()
	s.ReportHash = "bad"
	s.IntegrityScore = -5
	err := NewValidator(vault.NewMemoryVault()).Validate(context.Background(), s)
	assertViolation(t, err, RuleReportHash)
}

func TestViolationNeverEchoesRawValue(t *testing.T) {
	s := validSummary()
	secret := "Jane Plaintiff"
	s.Actors[0].PseudonymID = secret
	err := vaultedValidator(t, s).Validate(context.Background(), s)
	if err == nil {
		t.Fatal("expected violation")
	}
	if strings.Contains(err.Error(), secret) {
		t.Fatal("violation message must not echo the offending raw value")
	}
}

func TestValidateWire(t *testing.T) {
	s := validSummary()
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}

	validator := vaultedValidator(t, s)

	decoded, err := validator.ValidateWire(context.Background(), raw)
	if err != nil {
		t.Fatalf("valid wire payload must pass, got %v", err)
	}
	if decoded.ReportHash != s.ReportHash {
		t.Fatal("decoded summary must round-trip the report hash")
	}

	// Structurally broken payloads fail the schema before semantic rules.
	_, err = validator.ValidateWire(context.Background(), []byte(`{"reportHash": 5}`))
	assertViolation(t, err, RuleWireShape)

	_, err = validator.ValidateWire(context.Background(), []byte(`not json`))
	assertViolation(t, err, RuleWireShape)

	// Unknown fields are rejected: raw evidence can't ride along.
	payload := map[string]interface{}{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatal(err)
	}
	payload["rawEvidence"] = "smuggled transcript text"
	smuggled, _ := json.Marshal(payload)
	_, err = validator.ValidateWire(context.Background(), smuggled)
	assertViolation(t, err, RuleWireShape)
}

func TestNewSealedSummaryAppliesIntrinsicRules(t *testing.T) {
	base := validSummary()

	s, err := NewSealedSummary(base.ReportHash, base.IntegrityScore, base.Findings, base.Actors, base.GPSCoordinates, base.TripleVerificationStatus)
	if err != nil {
		t.Fatalf("well-formed summary must construct: %v", err)
	}
	if s == nil {
		t.Fatal("constructor returned no summary")
	}
}

func TestNewSealedSummaryRejectsPlaintextActor(t *testing.T) {
	base := validSummary()
	actors := []ActorSummary{{PseudonymID: "John Smith", ConsistencyScore: 0.9}}

	s, err := NewSealedSummary(base.ReportHash, base.IntegrityScore, base.Findings, actors, base.GPSCoordinates, base.TripleVerificationStatus)
	if s != nil {
		t.Fatal("a summary with a plaintext actor must never exist")
	}
	assertViolation(t, err, RuleActorPseudonym)
	if strings.Contains(err.Error(), "John Smith") {
		t.Fatal("violation must not echo the raw value")
	}
}

func TestNewSealedSummaryRejectsOutOfRangeScore(t *testing.T) {
	base := validSummary()

	_, err := NewSealedSummary(base.ReportHash, 150, base.Findings, base.Actors, base.GPSCoordinates, base.TripleVerificationStatus)
	assertViolation(t, err, RuleIntegrityScore)
}

func TestNewSealedSummaryRejectsProseCategory(t *testing.T) {
	base := validSummary()
	findings := []FindingSummary{
		{Category: "the document was altered after signing by the second party", Severity: SeverityHigh, Confidence: 0.9, EvidenceCount: 1},
	}

	_, err := NewSealedSummary(base.ReportHash, base.IntegrityScore, findings, base.Actors, base.GPSCoordinates, base.TripleVerificationStatus)
	assertViolation(t, err, RuleFieldLength)
}
