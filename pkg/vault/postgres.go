package vault

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/lib/pq"
)

// PostgresVault is a durable Vault over PostgreSQL, for deployments that
// already run a case database. Same contract as the sqlite backend.
type PostgresVault struct {
	db    *sql.DB
	clock func() time.Time
}

// NewPostgresVault wraps an open handle. Schema application is explicit so
// operators can run it under their own migration tooling.
func NewPostgresVault(db *sql.DB) *PostgresVault {
	return &PostgresVault{db: db, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (v *PostgresVault) WithClock(clock func() time.Time) *PostgresVault {
	v.clock = clock
	return v
}

// Migrate applies the vault schema.
func (v *PostgresVault) Migrate(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS vault_records (
        hash TEXT PRIMARY KEY,
        record_id TEXT NOT NULL,
        timestamp TIMESTAMPTZ NOT NULL,
        record_type TEXT NOT NULL
    );`
	if _, err := v.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("vault migration failed: %w", err)
	}
	return nil
}

func (v *PostgresVault) Store(ctx context.Context, hash string, recordType RecordType) (string, bool, error) {
	hash = normalizeHash(hash)
	if err := validate(hash, recordType); err != nil {
		return "", false, err
	}

	recordID := uuid.New().String()

	// Single round trip: insert if absent, otherwise surface the winner's ID.
	// The no-op DO UPDATE makes RETURNING yield a row on conflict as well,
	// and xmax is zero only for a freshly inserted row.
	row := v.db.QueryRowContext(ctx,
		`INSERT INTO vault_records (hash, record_id, timestamp, record_type)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (hash) DO UPDATE SET hash = vault_records.hash
         RETURNING record_id, (xmax = 0) AS inserted`,
		hash, recordID, v.clock().UTC(), string(recordType))

	var winner string
	var inserted bool
	if err := row.Scan(&winner, &inserted); err != nil {
		return "", false, fmt.Errorf("vault store failed: %w", err)
	}
	return winner, !inserted, nil
}

func (v *PostgresVault) LookupByHash(ctx context.Context, hash string) (*Record, error) {
	hash = normalizeHash(hash)

	row := v.db.QueryRowContext(ctx,
		`SELECT hash, record_id, timestamp, record_type FROM vault_records WHERE hash = $1`, hash)

	var rec Record
	var rt string
	err := row.Scan(&rec.Hash, &rec.RecordID, &rec.Timestamp, &rt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault lookup failed: %w", err)
	}
	rec.Type = RecordType(rt)
	return &rec, nil
}
