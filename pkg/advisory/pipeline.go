// Package advisory wires the downstream contract: a validated SealedSummary
// is classified, handed to the advisory composer, and the composed result is
// sealed and vaulted before anything leaves the pipeline.
//
// The composer itself is an external collaborator. It only ever sees data
// that passed the input contract; this package re-validates at the boundary
// rather than trusting upstream callers.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caseproof/custody-core/pkg/artifact"
	"github.com/caseproof/custody-core/pkg/audit"
	"github.com/caseproof/custody-core/pkg/canonical"
	"github.com/caseproof/custody-core/pkg/config"
	"github.com/caseproof/custody-core/pkg/contract"
	"github.com/caseproof/custody-core/pkg/jurisdiction"
	"github.com/caseproof/custody-core/pkg/observability"
	"github.com/caseproof/custody-core/pkg/seal"
	"github.com/caseproof/custody-core/pkg/session"
	"github.com/caseproof/custody-core/pkg/vault"
)

// Response is the advisory output shape stored and returned downstream.
type Response struct {
	ReportHash                 string   `json:"reportHash"`
	Jurisdiction               string   `json:"jurisdiction"`
	AllApplicableJurisdictions []string `json:"allApplicableJurisdictions"`
	Recommendations            []string `json:"recommendations"`
	NextSteps                  []string `json:"nextSteps"`
	RiskFactors                []string `json:"riskFactors"`
	Disclaimers                []string `json:"disclaimers"`
	VaultRecordID              string   `json:"vaultRecordId"`
}

// Composer produces advisory content from a validated summary. It receives
// abstracted data only; implementations never see raw evidence.
type Composer interface {
	Compose(ctx context.Context, summary *contract.SealedSummary, assignment jurisdiction.Assignment, profile *config.GuidanceProfile) (*Response, error)
}

// Pipeline runs the full downstream flow: validate, classify, compose,
// seal, store.
type Pipeline struct {
	validator *contract.Validator
	router    *jurisdiction.Router
	engine    *seal.Engine
	store     vault.Vault
	composer  Composer
	sessions  *session.Manager

	profilesDir string
	auditLog    audit.Logger
	metrics     *observability.Metrics
	clock       func() time.Time
	logger      *slog.Logger
}

// New assembles a pipeline. The metrics handle may be nil.
func New(validator *contract.Validator, router *jurisdiction.Router, engine *seal.Engine, store vault.Vault, composer Composer, profilesDir string) *Pipeline {
	return &Pipeline{
		validator:   validator,
		router:      router,
		engine:      engine,
		store:       store,
		composer:    composer,
		sessions:    session.NewManager(),
		profilesDir: profilesDir,
		auditLog:    audit.NewLogger(),
		clock:       time.Now,
		logger:      slog.Default().With("component", "advisory"),
	}
}

// WithAuditLogger overrides the audit sink.
func (p *Pipeline) WithAuditLogger(l audit.Logger) *Pipeline {
	p.auditLog = l
	return p
}

// WithMetrics attaches pipeline metrics.
func (p *Pipeline) WithMetrics(m *observability.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// WithSessions overrides the session manager.
func (p *Pipeline) WithSessions(m *session.Manager) *Pipeline {
	p.sessions = m
	return p
}

// WithClock overrides the clock for deterministic testing.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// Sessions exposes the advisory session manager.
func (p *Pipeline) Sessions() *session.Manager {
	return p.sessions
}

// SealReport seals raw forensic content and vaults the result. This is the
// only path by which forensic records enter the vault. Nothing persists if
// sealing fails or the context is cancelled first.
func (p *Pipeline) SealReport(ctx context.Context, content []byte, metadata map[string]string) (*seal.Seal, string, error) {
	s, err := p.engine.Seal(ctx, content, metadata, p.clock())
	if err != nil {
		return nil, "", err
	}

	recordID, duplicate, err := p.store.Store(ctx, s.FinalHash, vault.RecordTypeForensic)
	if err != nil {
		return nil, "", fmt.Errorf("vault commit failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordSeal(ctx)
		p.metrics.RecordVaultWrite(ctx, duplicate)
	}
	_ = p.auditLog.Record(ctx, audit.EventSeal, "system", "seal_report", "record:"+recordID, map[string]interface{}{
		"final_hash":  s.FinalHash,
		"seal_key_id": s.SealKeyID,
	})

	return s, recordID, nil
}

// VerifyArtifact runs an artifact verification and records the verdict on
// the audit trail and the verification counter. Callers gate on the
// report's Err(): anything but AUTHENTIC must abort processing.
func (p *Pipeline) VerifyArtifact(ctx context.Context, verifier *artifact.Verifier, path string) *artifact.IntegrityReport {
	report := verifier.Verify(ctx, path)

	if p.metrics != nil {
		p.metrics.RecordVerification(ctx, string(report.Status))
	}
	_ = p.auditLog.Record(ctx, audit.EventVerification, "system", "verify_artifact", "artifact:"+path, map[string]interface{}{
		"status":          string(report.Status),
		"calculated_hash": report.CalculatedHash,
		"expected_hash":   report.ExpectedHash,
	})

	return report
}

// Exchange chains a question/response pair into an open session and counts
// it. This is the instrumented path; transport wrappers call this rather
// than the session manager directly.
func (p *Pipeline) Exchange(ctx context.Context, sessionID, question, response string) (*session.ExchangeRecord, error) {
	rec, err := p.sessions.Exchange(ctx, sessionID, question, response)
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.RecordExchange(ctx)
	}
	_ = p.auditLog.Record(ctx, audit.EventSession, "system", "exchange", "session:"+sessionID, map[string]interface{}{
		"question_hash": rec.QuestionHash,
		"response_hash": rec.ResponseHash,
	})

	return rec, nil
}

// Advise runs the downstream contract end to end. Contract violations are
// terminal: no advisory content is composed, and the violation names the
// failed rule only.
func (p *Pipeline) Advise(ctx context.Context, summary *contract.SealedSummary) (*Response, error) {
	if err := p.validator.Validate(ctx, summary); err != nil {
		var v *contract.Violation
		if errors.As(err, &v) {
			if p.metrics != nil {
				p.metrics.RecordRejection(ctx, string(v.Rule))
			}
			_ = p.auditLog.Record(ctx, audit.EventRejection, "validator", "reject_summary", "rule:"+string(v.Rule), nil)
		}
		return nil, err
	}

	assignment := p.router.Classify(summary.GPSCoordinates)
	profile := config.LoadProfileOrFallback(p.profilesDir, string(assignment.Primary))

	resp, err := p.composer.Compose(ctx, summary, assignment, profile)
	if err != nil {
		return nil, fmt.Errorf("advisory composition failed: %w", err)
	}
	resp.ReportHash = summary.ReportHash
	resp.Jurisdiction = string(assignment.Primary)
	resp.AllApplicableJurisdictions = make([]string, 0, len(assignment.All))
	for _, code := range assignment.All {
		resp.AllApplicableJurisdictions = append(resp.AllApplicableJurisdictions, string(code))
	}

	// Seal and vault the composed response before it leaves the pipeline.
	payload, err := canonical.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("advisory serialization failed: %w", err)
	}
	s, err := p.engine.Seal(ctx, payload, map[string]string{
		"report_hash":  summary.ReportHash,
		"jurisdiction": resp.Jurisdiction,
	}, p.clock())
	if err != nil {
		return nil, err
	}
	recordID, duplicate, err := p.store.Store(ctx, s.FinalHash, vault.RecordTypeAdvisory)
	if err != nil {
		return nil, fmt.Errorf("vault commit failed: %w", err)
	}
	resp.VaultRecordID = recordID

	if p.metrics != nil {
		p.metrics.RecordSeal(ctx)
		p.metrics.RecordVaultWrite(ctx, duplicate)
	}
	_ = p.auditLog.Record(ctx, audit.EventVaultWrite, "system", "store_advisory", "record:"+recordID, map[string]interface{}{
		"jurisdiction": resp.Jurisdiction,
		"cross_border": assignment.CrossBorder,
	})

	p.logger.Info("advisory composed",
		"report_hash", summary.ReportHash,
		"jurisdiction", resp.Jurisdiction,
		"cross_border", assignment.CrossBorder,
		"vault_record_id", recordID)

	return resp, nil
}

// CloseSession freezes an advisory session, seals its transcript, and vaults
// it as a session_transcript record. Returns the final chain hash and the
// vault record ID.
func (p *Pipeline) CloseSession(ctx context.Context, sessionID string) (string, string, error) {
	finalChain, err := p.sessions.Close(ctx, sessionID)
	if err != nil {
		return "", "", err
	}
	transcript, err := p.sessions.Transcript(sessionID)
	if err != nil {
		return "", "", err
	}

	payload, err := canonical.Marshal(transcript)
	if err != nil {
		return "", "", fmt.Errorf("transcript serialization failed: %w", err)
	}
	s, err := p.engine.Seal(ctx, payload, map[string]string{
		"session_id": sessionID,
		"chain_hash": finalChain,
	}, p.clock())
	if err != nil {
		return "", "", err
	}
	recordID, duplicate, err := p.store.Store(ctx, s.FinalHash, vault.RecordTypeSessionTranscript)
	if err != nil {
		return "", "", fmt.Errorf("vault commit failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordSeal(ctx)
		p.metrics.RecordVaultWrite(ctx, duplicate)
	}
	_ = p.auditLog.Record(ctx, audit.EventSession, "system", "close_session", "session:"+sessionID, map[string]interface{}{
		"chain_hash":      finalChain,
		"vault_record_id": recordID,
		"exchanges":       len(transcript.Exchanges),
	})

	return finalChain, recordID, nil
}
