// Package contract enforces the input contract between the forensic core and
// the advisory layer. A SealedSummary is the ONLY object allowed to cross
// that boundary: hashed, scored, pseudonymized, and free of raw evidence
// text. The validator here is the sole mechanism preventing raw-evidence
// leakage into advisory output, so it runs at every entry point that accepts
// a summary, not once at ingestion.
package contract

import "fmt"

// SealedSummary is the abstracted, sealed view of forensic findings handed
// to the advisory layer. No field may carry free-form text copied from
// source evidence.
type SealedSummary struct {
	ReportHash               string           `json:"reportHash"`
	IntegrityScore           int              `json:"integrityScore"`
	Findings                 []FindingSummary `json:"findings"`
	Actors                   []ActorSummary   `json:"actors"`
	GPSCoordinates           []Coordinate     `json:"gpsCoordinates"`
	TripleVerificationStatus string           `json:"tripleVerificationStatus"`
}

// NewSealedSummary builds a summary and applies the intrinsic admission
// rules (hash shape, score bounds, pseudonymization, no free text) at
// construction, so a summary carrying raw evidence never exists in a valid
// state. The custody rule still runs at the boundary, where a vault is
// available.
func NewSealedSummary(reportHash string, integrityScore int, findings []FindingSummary, actors []ActorSummary, coords []Coordinate, verificationStatus string) (*SealedSummary, error) {
	s := &SealedSummary{
		ReportHash:               reportHash,
		IntegrityScore:           integrityScore,
		Findings:                 findings,
		Actors:                   actors,
		GPSCoordinates:           coords,
		TripleVerificationStatus: verificationStatus,
	}
	if err := checkIntrinsic(s); err != nil {
		return nil, err
	}
	return s, nil
}

// FindingSummary abstracts one finding to category, severity, confidence,
// and a count. Never the finding text itself.
type FindingSummary struct {
	Category      string  `json:"category"`
	Severity      string  `json:"severity"`
	Confidence    float64 `json:"confidence"`
	EvidenceCount int     `json:"evidenceCount"`
}

// Severity values accepted in a finding summary.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// ActorSummary identifies an actor only by pseudonym hash plus a consistency
// score. Names never cross the boundary.
type ActorSummary struct {
	PseudonymID      string  `json:"pseudonymId"`
	ConsistencyScore float64 `json:"consistencyScore"`
}

// Coordinate is a geographic evidence point.
type Coordinate struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Accuracy   float64 `json:"accuracy"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// InRange reports whether the coordinate lies within valid WGS84 bounds.
func (c Coordinate) InRange() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Rule names a validator rule. Violations carry the rule only, never the
// offending raw value.
type Rule string

const (
	RuleWireShape       Rule = "WIRE_SHAPE"
	RuleReportHash      Rule = "REPORT_HASH"
	RuleIntegrityScore  Rule = "INTEGRITY_SCORE"
	RuleActorPseudonym  Rule = "ACTOR_PSEUDONYM"
	RuleFieldLength     Rule = "FIELD_LENGTH"
	RuleCoordinateRange Rule = "COORDINATE_RANGE"
	RuleCustody         Rule = "CUSTODY"
)

// Violation is the single failure result of the validator. Callers must
// refuse to proceed on any violation; stripping offending fields and
// continuing is not an option this package offers.
type Violation struct {
	Rule   Rule
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("contract violation [%s]: %s", v.Rule, v.Detail)
}

func violation(rule Rule, format string, args ...interface{}) *Violation {
	return &Violation{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}
