// Package observability provides OpenTelemetry metrics for the sealing
// pipeline: seals produced, verification verdicts, vault writes, contract
// rejections. Export wiring (OTLP, collectors) is the host application's
// concern; this package only instruments.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/caseproof/custody-core"

// Metrics holds the pipeline instruments.
type Metrics struct {
	logger *slog.Logger

	sealsTotal         metric.Int64Counter
	verificationsTotal metric.Int64Counter
	vaultWritesTotal   metric.Int64Counter
	rejectionsTotal    metric.Int64Counter
	sessionExchanges   metric.Int64Counter
}

// New creates pipeline metrics on the given meter provider. Pass nil to use
// the globally registered provider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	m := &Metrics{logger: slog.Default().With("component", "observability")}

	var err error
	if m.sealsTotal, err = meter.Int64Counter("custody_seals_total",
		metric.WithDescription("Reports sealed")); err != nil {
		return nil, fmt.Errorf("create seal counter: %w", err)
	}
	if m.verificationsTotal, err = meter.Int64Counter("custody_verifications_total",
		metric.WithDescription("Artifact verifications by verdict")); err != nil {
		return nil, fmt.Errorf("create verification counter: %w", err)
	}
	if m.vaultWritesTotal, err = meter.Int64Counter("custody_vault_writes_total",
		metric.WithDescription("Vault stores by outcome")); err != nil {
		return nil, fmt.Errorf("create vault counter: %w", err)
	}
	if m.rejectionsTotal, err = meter.Int64Counter("custody_contract_rejections_total",
		metric.WithDescription("Summaries rejected at the contract boundary, by rule")); err != nil {
		return nil, fmt.Errorf("create rejection counter: %w", err)
	}
	if m.sessionExchanges, err = meter.Int64Counter("custody_session_exchanges_total",
		metric.WithDescription("Advisory session exchanges chained")); err != nil {
		return nil, fmt.Errorf("create session counter: %w", err)
	}

	return m, nil
}

// RecordSeal counts a produced seal.
func (m *Metrics) RecordSeal(ctx context.Context) {
	m.sealsTotal.Add(ctx, 1)
}

// RecordVerification counts a verification by its verdict.
func (m *Metrics) RecordVerification(ctx context.Context, verdict string) {
	m.verificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

// RecordVaultWrite counts a vault store; duplicate marks an idempotent hit.
func (m *Metrics) RecordVaultWrite(ctx context.Context, duplicate bool) {
	m.vaultWritesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("duplicate", duplicate)))
}

// RecordRejection counts a contract rejection by violated rule.
func (m *Metrics) RecordRejection(ctx context.Context, rule string) {
	m.rejectionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
}

// RecordExchange counts a chained session exchange.
func (m *Metrics) RecordExchange(ctx context.Context) {
	m.sessionExchanges.Add(ctx, 1)
}
