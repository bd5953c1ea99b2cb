// Package config loads pipeline configuration from the environment and from
// YAML guidance profiles. The artifact anchor lives here rather than in a
// compiled-in constant: it is fixed per release, supplied at deploy time,
// and auditable by anyone re-hashing the shipped artifact.
package config

import "os"

// Config holds pipeline configuration.
type Config struct {
	// AnchorHash is the expected artifact digest for this release.
	AnchorHash string
	// ReleaseVersion identifies the release the anchor belongs to (semver).
	ReleaseVersion string
	// VaultBackend selects the vault implementation: "memory", "sqlite" or "postgres".
	VaultBackend string
	// DatabaseURL is the sqlite path or postgres DSN, depending on backend.
	DatabaseURL string
	// DetachedVerification skips the vault custody check in the contract
	// validator. Off by default; offline review tooling only.
	DetachedVerification bool
	// ProfilesDir holds jurisdiction guidance profiles (profile_<code>.yaml).
	ProfilesDir string
	// JurisdictionTable optionally overrides the built-in region table.
	JurisdictionTable string
	// LogLevel controls slog verbosity.
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	backend := os.Getenv("VAULT_BACKEND")
	if backend == "" {
		backend = "memory"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && backend == "sqlite" {
		dbURL = "custody.db"
	}

	profilesDir := os.Getenv("PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "profiles"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		AnchorHash:           os.Getenv("ANCHOR_HASH"),
		ReleaseVersion:       os.Getenv("RELEASE_VERSION"),
		VaultBackend:         backend,
		DatabaseURL:          dbURL,
		DetachedVerification: os.Getenv("DETACHED_VERIFICATION") == "true",
		ProfilesDir:          profilesDir,
		JurisdictionTable:    os.Getenv("JURISDICTION_TABLE"),
		LogLevel:             logLevel,
	}
}
