package vault

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteVault is a durable Vault over sqlite. The hash column is the primary
// key, which gives per-hash serialization and idempotent stores at the
// database layer.
type SQLiteVault struct {
	db    *sql.DB
	clock func() time.Time
}

// NewSQLiteVault wraps an open sqlite handle and applies the schema.
func NewSQLiteVault(db *sql.DB) (*SQLiteVault, error) {
	v := &SQLiteVault{db: db, clock: time.Now}
	if err := v.migrate(); err != nil {
		return nil, err
	}
	return v, nil
}

// WithClock overrides the clock for deterministic testing.
func (v *SQLiteVault) WithClock(clock func() time.Time) *SQLiteVault {
	v.clock = clock
	return v
}

func (v *SQLiteVault) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS vault_records (
        hash TEXT PRIMARY KEY,
        record_id TEXT NOT NULL,
        timestamp TEXT NOT NULL,
        record_type TEXT NOT NULL
    );`
	_, err := v.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("vault migration failed: %w", err)
	}
	return nil
}

func (v *SQLiteVault) Store(ctx context.Context, hash string, recordType RecordType) (string, bool, error) {
	hash = normalizeHash(hash)
	if err := validate(hash, recordType); err != nil {
		return "", false, err
	}

	recordID := uuid.New().String()
	timestamp := v.clock().UTC().Format(time.RFC3339Nano)

	// ON CONFLICT DO NOTHING makes the write race benign: whichever insert
	// lands first wins, and the re-select below returns its record ID.
	_, err := v.db.ExecContext(ctx,
		`INSERT INTO vault_records (hash, record_id, timestamp, record_type)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(hash) DO NOTHING`,
		hash, recordID, timestamp, string(recordType))
	if err != nil {
		return "", false, fmt.Errorf("vault store failed: %w", err)
	}

	var winner string
	err = v.db.QueryRowContext(ctx,
		`SELECT record_id FROM vault_records WHERE hash = ?`, hash).Scan(&winner)
	if err != nil {
		return "", false, fmt.Errorf("vault store readback failed: %w", err)
	}
	// A different winner means the insert lost to an earlier record.
	return winner, winner != recordID, nil
}

func (v *SQLiteVault) LookupByHash(ctx context.Context, hash string) (*Record, error) {
	hash = normalizeHash(hash)

	row := v.db.QueryRowContext(ctx,
		`SELECT hash, record_id, timestamp, record_type FROM vault_records WHERE hash = ?`, hash)

	var rec Record
	var ts string
	var rt string
	err := row.Scan(&rec.Hash, &rec.RecordID, &ts, &rt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault lookup failed: %w", err)
	}

	rec.Type = RecordType(rt)
	rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("vault record timestamp corrupt: %w", err)
	}
	return &rec, nil
}
