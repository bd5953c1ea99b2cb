package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caseproof/custody-core/pkg/config"
	"github.com/caseproof/custody-core/pkg/seal"
	"github.com/caseproof/custody-core/pkg/vault"
)

// metaFlags collects repeated --meta key=value pairs.
type metaFlags map[string]string

func (m metaFlags) String() string { return fmt.Sprintf("%v", map[string]string(m)) }

func (m metaFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	m[key] = val
	return nil
}

// runSealCmd implements `custody seal`.
//
// Reads the report file, seals it, and commits the final hash to the vault
// as a forensic record. The seal and vault record id are printed as JSON.
func runSealCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("seal", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var in string
	meta := metaFlags{}
	cmd.StringVar(&in, "in", "", "Path to the report file to seal (REQUIRED)")
	cmd.Var(meta, "meta", "Metadata pair key=value (repeatable)")

	if err := cmd.Parse(args); err != nil {
		return 1
	}
	if in == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --in is required")
		return 1
	}

	content, err := os.ReadFile(in)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read report: %v\n", err)
		return 1
	}

	keys, err := sealKeyProvider()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	s, err := seal.NewEngine(keys).Seal(ctx, content, meta, time.Now().UTC())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: sealing failed: %v\n", err)
		return 2
	}

	store, closeVault, err := openVault(ctx, config.Load())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = closeVault() }()

	recordID, duplicate, err := store.Store(ctx, s.FinalHash, vault.RecordTypeForensic)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: vault write failed: %v\n", err)
		return 2
	}

	out := struct {
		Seal      *seal.Seal `json:"seal"`
		RecordID  string     `json:"recordId"`
		Duplicate bool       `json:"duplicate"`
	}{Seal: s, RecordID: recordID, Duplicate: duplicate}

	data, _ := json.MarshalIndent(out, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}
