package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/caseproof/custody-core/pkg/artifact"
	"github.com/caseproof/custody-core/pkg/config"
)

// runVerifyCmd implements `custody verify`.
//
// Hashes the artifact at --artifact and compares it to the release anchor.
// The anchor comes from --anchor/--release or, when omitted, from
// ANCHOR_HASH/RELEASE_VERSION in the environment.
//
// Exit codes:
//
//	0 = artifact is authentic
//	1 = usage error
//	2 = tampered or verification could not complete (fail closed)
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		path       string
		anchorHash string
		release    string
		jsonOutput bool
	)

	cfg := config.Load()
	cmd.StringVar(&path, "artifact", "", "Path to the artifact file (REQUIRED)")
	cmd.StringVar(&anchorHash, "anchor", cfg.AnchorHash, "Expected SHA-256 digest of the artifact")
	cmd.StringVar(&release, "release", cfg.ReleaseVersion, "Release version the anchor belongs to")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the integrity report as JSON")

	if err := cmd.Parse(args); err != nil {
		return 1
	}
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --artifact is required")
		return 1
	}

	anchor, err := artifact.NewAnchor(anchorHash, release)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid anchor: %v\n", err)
		return 1
	}

	report := artifact.NewVerifier(anchor).Verify(context.Background(), path)

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		_, _ = fmt.Fprintf(stdout, "status: %s\n", report.Status)
		if err := report.Err(); err != nil {
			_, _ = fmt.Fprintf(stdout, "detail: %v\n", err)
		}
	}

	if report.Status != artifact.StatusAuthentic {
		return 2
	}
	return 0
}
