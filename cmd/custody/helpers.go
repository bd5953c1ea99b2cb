package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/caseproof/custody-core/pkg/config"
	"github.com/caseproof/custody-core/pkg/seal"
	"github.com/caseproof/custody-core/pkg/vault"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver
)

// openVault builds the vault selected by VAULT_BACKEND. The returned close
// func is a no-op for the memory backend.
func openVault(ctx context.Context, cfg *config.Config) (vault.Vault, func() error, error) {
	switch cfg.VaultBackend {
	case "memory":
		return vault.NewMemoryVault(), func() error { return nil }, nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite vault: %w", err)
		}
		v, err := vault.NewSQLiteVault(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return v, db.Close, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres vault: %w", err)
		}
		v := vault.NewPostgresVault(db)
		if err := v.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return v, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vault backend %q", cfg.VaultBackend)
	}
}

// sealKeyProvider derives seal keys from SEAL_MASTER_KEY (hex) when set,
// falling back to per-seal random keys.
func sealKeyProvider() (seal.KeyProvider, error) {
	raw := os.Getenv("SEAL_MASTER_KEY")
	if raw == "" {
		return seal.NewRandomKeyProvider(), nil
	}
	master, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("SEAL_MASTER_KEY is not valid hex: %w", err)
	}
	return seal.NewDerivedKeyProvider(master)
}
