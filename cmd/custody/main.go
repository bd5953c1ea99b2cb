// Command custody is the operator CLI for the sealing and chain-of-custody
// toolkit. It exposes the library surface as subcommands:
//
//	custody verify   — verify an artifact against its release anchor
//	custody seal     — seal a report file and commit it to the vault
//	custody classify — resolve jurisdiction for a set of GPS coordinates
//	custody vault    — inspect vault records by content hash
//
// Exit codes: 0 on success, 1 on usage or runtime error, 2 on an integrity
// failure (tampered artifact, rejected contract, vault miss).
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split from main for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 1
	}

	switch args[1] {
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "seal":
		return runSealCmd(args[2:], stdout, stderr)
	case "classify":
		return runClassifyCmd(args[2:], stdout, stderr)
	case "vault":
		if len(args) < 3 {
			_, _ = fmt.Fprintln(stderr, "Usage: custody vault <lookup>")
			return 1
		}
		switch args[2] {
		case "lookup":
			return runVaultLookupCmd(args[3:], stdout, stderr)
		default:
			_, _ = fmt.Fprintf(stderr, "Unknown vault subcommand: %s\n", args[2])
			return 1
		}
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		usage(stderr)
		return 1
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: custody <command> [flags]

Commands:
  verify          Verify an artifact file against its release anchor
  seal            Seal a report file and commit the seal to the vault
  classify        Resolve jurisdiction for GPS coordinates
  vault lookup    Look up a vault record by content hash
  help            Show this message`)
}
