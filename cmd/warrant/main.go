// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/warrant-foundation/warrant/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "keyring":
		return runKeyring(os.Args[2:])
	case "seal":
		return runSeal(os.Args[2:])
	case "open":
		return runOpen(os.Args[2:])
	case "capsule":
		return runCapsule(os.Args[2:])
	case "boundary":
		return runBoundary(os.Args[2:])
	case "policy":
		return runPolicy(os.Args[2:])
	case "audit":
		return runAudit(os.Args[2:])
	case "version", "--version":
		fmt.Printf("warrant %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: warrant <subcommand> [flags]

Subcommands:
  keyring     Manage the sealed master keyring (keygen, seal, inspect)
  seal        Seal an authorization envelope
  open        Verify an envelope and open its payload
  capsule     Seal or attempt a predicate-gated capsule (seal, attempt)
  boundary    Evaluate an action against an operating boundary (eval)
  policy      Validate or display a policy file (validate, show)
  audit       Verify, query, or browse the audit log (verify, query, view)
  version     Print version information

Run 'warrant <subcommand> --help' for subcommand flags.
`)
}
