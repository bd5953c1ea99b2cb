package advisory

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/time/rate"

	"github.com/caseproof/custody-core/pkg/artifact"
	"github.com/caseproof/custody-core/pkg/audit"
	"github.com/caseproof/custody-core/pkg/contract"
	"github.com/caseproof/custody-core/pkg/hashing"
	"github.com/caseproof/custody-core/pkg/jurisdiction"
	"github.com/caseproof/custody-core/pkg/observability"
	"github.com/caseproof/custody-core/pkg/seal"
	"github.com/caseproof/custody-core/pkg/session"
	"github.com/caseproof/custody-core/pkg/vault"
)

func testPipeline(t *testing.T, store vault.Vault) *Pipeline {
	t.Helper()
	engine := seal.NewEngine(&seal.StaticKeyProvider{Key: bytes.Repeat([]byte{0x11}, 64), ID: "pipeline-key"})
	var sink bytes.Buffer
	return New(
		contract.NewValidator(store),
		jurisdiction.NewDefaultRouter(),
		engine,
		store,
		NewGuidanceComposer(),
		t.TempDir(),
	).
		WithAuditLogger(audit.NewLoggerWithWriter(&sink)).
		WithSessions(session.NewManager().WithExchangeLimit(rate.Inf, 0)).
		WithClock(func() time.Time { return time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC) })
}

func vaultedSummary(t *testing.T, store vault.Vault) *contract.SealedSummary {
	t.Helper()
	s := &contract.SealedSummary{
		ReportHash:     hashing.DigestString("forensic report"),
		IntegrityScore: 88,
		Findings: []contract.FindingSummary{
			{Category: "metadata_manipulation", Severity: contract.SeverityCritical, Confidence: 0.9, EvidenceCount: 4},
		},
		Actors: []contract.ActorSummary{
			{PseudonymID: hashing.DigestString("actor"), ConsistencyScore: 0.8},
		},
		GPSCoordinates: []contract.Coordinate{
			{Latitude: 24.4539, Longitude: 54.3773, Accuracy: 8, Source: "exif", Confidence: 0.85},
		},
		TripleVerificationStatus: "VERIFIED",
	}
	if _, _, err := store.Store(context.Background(), s.ReportHash, vault.RecordTypeForensic); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSealReportCommitsToVault(t *testing.T) {
	store := vault.NewMemoryVault()
	p := testPipeline(t, store)

	s, recordID, err := p.SealReport(context.Background(), []byte("raw report"), map[string]string{"case": "C-1"})
	if err != nil {
		t.Fatal(err)
	}
	if recordID == "" {
		t.Fatal("seal must commit a vault record")
	}

	rec, err := store.LookupByHash(context.Background(), s.FinalHash)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Type != vault.RecordTypeForensic {
		t.Fatalf("expected a forensic vault record, got %+v", rec)
	}
}

func TestAdviseHappyPath(t *testing.T) {
	store := vault.NewMemoryVault()
	p := testPipeline(t, store)
	summary := vaultedSummary(t, store)

	resp, err := p.Advise(context.Background(), summary)
	if err != nil {
		t.Fatal(err)
	}

	if resp.Jurisdiction != "UAE" {
		t.Fatalf("expected UAE, got %s", resp.Jurisdiction)
	}
	if resp.ReportHash != summary.ReportHash {
		t.Fatal("response must reference the summary hash")
	}
	if resp.VaultRecordID == "" {
		t.Fatal("advisory response must be vaulted")
	}
	if len(resp.Recommendations) == 0 || len(resp.Disclaimers) == 0 {
		t.Fatal("composer output missing")
	}
}

func TestAdviseRefusesOnViolation(t *testing.T) {
	store := vault.NewMemoryVault()
	p := testPipeline(t, store)
	summary := vaultedSummary(t, store)
	summary.Actors[0].PseudonymID = "Jane Plaintiff"

	_, err := p.Advise(context.Background(), summary)
	var v *contract.Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected contract violation, got %v", err)
	}
	if v.Rule != contract.RuleActorPseudonym {
		t.Fatalf("expected pseudonym rule, got %s", v.Rule)
	}
}

func TestAdviseUnknownJurisdictionFallsBack(t *testing.T) {
	store := vault.NewMemoryVault()
	p := testPipeline(t, store)
	summary := vaultedSummary(t, store)
	summary.GPSCoordinates = nil

	resp, err := p.Advise(context.Background(), summary)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Jurisdiction != string(jurisdiction.CodeUnknown) {
		t.Fatalf("expected UNKNOWN, got %s", resp.Jurisdiction)
	}
	if len(resp.Disclaimers) == 0 {
		t.Fatal("fallback guidance must still carry disclaimers")
	}
}

func TestCrossBorderSurfacesAsRisk(t *testing.T) {
	store := vault.NewMemoryVault()
	p := testPipeline(t, store)
	summary := vaultedSummary(t, store)
	summary.GPSCoordinates = append(summary.GPSCoordinates,
		contract.Coordinate{Latitude: -33.9249, Longitude: 18.4241, Accuracy: 10, Source: "exif", Confidence: 0.9})

	resp, err := p.Advise(context.Background(), summary)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.AllApplicableJurisdictions) != 2 {
		t.Fatalf("expected 2 jurisdictions, got %v", resp.AllApplicableJurisdictions)
	}
	found := false
	for _, r := range resp.RiskFactors {
		if r == "Evidence spans multiple jurisdictions; cross-border disclosure rules apply" {
			found = true
		}
	}
	if !found {
		t.Fatal("cross-border must surface as a risk factor")
	}
}

func TestCloseSessionVaultsTranscript(t *testing.T) {
	store := vault.NewMemoryVault()
	p := testPipeline(t, store)
	ctx := context.Background()

	id := p.Sessions().Open(ctx)
	if _, err := p.Sessions().Exchange(ctx, id, "what next", "escalate"); err != nil {
		t.Fatal(err)
	}

	chainHash, recordID, err := p.CloseSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if chainHash == "" || recordID == "" {
		t.Fatal("close must return the chain hash and vault record")
	}

	// A second close is a client error and must not create more records.
	if _, _, err := p.CloseSession(ctx, id); !errors.Is(err, session.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestAdviseDeterministicSealing(t *testing.T) {
	// Same summary, same clock, same key: the advisory seal (and thus vault
	// key) must be reproducible.
	storeA := vault.NewMemoryVault()
	pA := testPipeline(t, storeA)
	respA, err := pA.Advise(context.Background(), vaultedSummary(t, storeA))
	if err != nil {
		t.Fatal(err)
	}

	storeB := vault.NewMemoryVault()
	pB := testPipeline(t, storeB)
	respB, err := pB.Advise(context.Background(), vaultedSummary(t, storeB))
	if err != nil {
		t.Fatal(err)
	}

	// Record IDs are per-vault UUIDs, but both pipelines vault the same
	// advisory content. Compare through the vault: both stores hold exactly
	// one record referencing each response.
	if respA.Jurisdiction != respB.Jurisdiction {
		t.Fatal("classification must be deterministic")
	}
	if len(respA.Recommendations) != len(respB.Recommendations) {
		t.Fatal("composition must be deterministic")
	}
}

func instrumentedPipeline(t *testing.T, store vault.Vault) (*Pipeline, *bytes.Buffer, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	metrics, err := observability.New(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatal(err)
	}

	engine := seal.NewEngine(&seal.StaticKeyProvider{Key: bytes.Repeat([]byte{0x11}, 64), ID: "pipeline-key"})
	sink := &bytes.Buffer{}
	p := New(
		contract.NewValidator(store),
		jurisdiction.NewDefaultRouter(),
		engine,
		store,
		NewGuidanceComposer(),
		t.TempDir(),
	).
		WithAuditLogger(audit.NewLoggerWithWriter(sink)).
		WithMetrics(metrics).
		WithSessions(session.NewManager().WithExchangeLimit(rate.Inf, 0)).
		WithClock(func() time.Time { return time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC) })
	return p, sink, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestVerifyArtifactRecordsVerdict(t *testing.T) {
	p, sink, reader := instrumentedPipeline(t, vault.NewMemoryVault())

	content := []byte("released binary")
	path := filepath.Join(t.TempDir(), "release.bin")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	anchor, err := artifact.NewAnchor(hashing.Digest(content), "1.0.0")
	if err != nil {
		t.Fatal(err)
	}

	report := p.VerifyArtifact(context.Background(), artifact.NewVerifier(anchor), path)
	if report.Status != artifact.StatusAuthentic {
		t.Fatalf("expected AUTHENTIC, got %s", report.Status)
	}

	if got := counterTotal(t, reader, "custody_verifications_total"); got != 1 {
		t.Fatalf("verification counter = %d, want 1", got)
	}
	trail := sink.String()
	if !strings.Contains(trail, string(audit.EventVerification)) || !strings.Contains(trail, "AUTHENTIC") {
		t.Fatalf("audit trail missing verification verdict: %s", trail)
	}
}

func TestVerifyArtifactRecordsTamperedVerdict(t *testing.T) {
	p, sink, reader := instrumentedPipeline(t, vault.NewMemoryVault())

	path := filepath.Join(t.TempDir(), "release.bin")
	if err := os.WriteFile(path, []byte("tampered binary"), 0o600); err != nil {
		t.Fatal(err)
	}
	anchor, err := artifact.NewAnchor(hashing.Digest([]byte("released binary")), "1.0.0")
	if err != nil {
		t.Fatal(err)
	}

	report := p.VerifyArtifact(context.Background(), artifact.NewVerifier(anchor), path)
	if report.Status != artifact.StatusTampered {
		t.Fatalf("expected TAMPERED, got %s", report.Status)
	}
	if got := counterTotal(t, reader, "custody_verifications_total"); got != 1 {
		t.Fatalf("verification counter = %d, want 1", got)
	}
	if !strings.Contains(sink.String(), "TAMPERED") {
		t.Fatal("audit trail must carry the failing verdict")
	}
}

func TestExchangeCountsAndAudits(t *testing.T) {
	p, sink, reader := instrumentedPipeline(t, vault.NewMemoryVault())
	ctx := context.Background()

	id := p.Sessions().Open(ctx)
	if _, err := p.Exchange(ctx, id, "What does the integrity score mean?", "It summarizes seal verification."); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Exchange(ctx, id, "Which jurisdiction applies?", "The primary assignment is shown."); err != nil {
		t.Fatal(err)
	}

	// A rejected question must not count as a chained exchange.
	if _, err := p.Exchange(ctx, id, "Can I upload a new document?", "n/a"); !errors.Is(err, session.ErrQuestionRejected) {
		t.Fatalf("expected policy rejection, got %v", err)
	}

	if got := counterTotal(t, reader, "custody_session_exchanges_total"); got != 2 {
		t.Fatalf("exchange counter = %d, want 2", got)
	}
	if !strings.Contains(sink.String(), "exchange") {
		t.Fatal("audit trail missing exchange events")
	}

	transcript, err := p.Sessions().Transcript(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript.Exchanges) != 2 {
		t.Fatalf("transcript has %d exchanges, want 2", len(transcript.Exchanges))
	}
}

func TestAdviseRecordsDuplicateVaultWrite(t *testing.T) {
	store := vault.NewMemoryVault()
	p, _, reader := instrumentedPipeline(t, store)
	summary := vaultedSummary(t, store)

	if _, err := p.Advise(context.Background(), summary); err != nil {
		t.Fatal(err)
	}
	// Same summary, same clock: the advisory seal recomputes to the same
	// final hash, so the second store deduplicates.
	if _, err := p.Advise(context.Background(), summary); err != nil {
		t.Fatal(err)
	}

	if got := vaultWritesByDuplicate(t, reader, false); got != 1 {
		t.Fatalf("fresh vault writes = %d, want 1", got)
	}
	if got := vaultWritesByDuplicate(t, reader, true); got != 1 {
		t.Fatalf("deduplicated vault writes = %d, want 1", got)
	}
}

func vaultWritesByDuplicate(t *testing.T, reader *sdkmetric.ManualReader, duplicate bool) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "custody_vault_writes_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatal("custody_vault_writes_total is not an int64 sum")
			}
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("duplicate")); ok && v.AsBool() == duplicate {
					total += dp.Value
				}
			}
		}
	}
	return total
}
