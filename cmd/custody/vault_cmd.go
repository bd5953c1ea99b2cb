package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/caseproof/custody-core/pkg/config"
)

// runVaultLookupCmd implements `custody vault lookup`.
//
// Exit codes:
//
//	0 = record found (printed as JSON)
//	1 = usage or backend error
//	2 = no record under that hash
func runVaultLookupCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("vault lookup", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var hash string
	cmd.StringVar(&hash, "hash", "", "Content hash to look up (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 1
	}
	if hash == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --hash is required")
		return 1
	}

	ctx := context.Background()
	store, closeVault, err := openVault(ctx, config.Load())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = closeVault() }()

	record, err := store.LookupByHash(ctx, hash)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: lookup failed: %v\n", err)
		return 1
	}
	if record == nil {
		_, _ = fmt.Fprintln(stderr, "No vault record under that hash")
		return 2
	}

	data, _ := json.MarshalIndent(record, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}
