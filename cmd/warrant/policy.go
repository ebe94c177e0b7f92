// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func runPolicy(args []string) error {
	if len(args) < 1 {
		printPolicyUsage()
		return fmt.Errorf("policy subcommand required")
	}
	switch args[0] {
	case "validate":
		return runPolicyValidate(args[1:])
	case "show":
		return runPolicyShow(args[1:])
	case "-h", "--help", "help":
		printPolicyUsage()
		return nil
	default:
		printPolicyUsage()
		return fmt.Errorf("unknown policy subcommand: %q", args[0])
	}
}

func printPolicyUsage() {
	fmt.Fprintf(os.Stderr, `Usage: warrant policy <subcommand> [flags]

Subcommands:
  validate    Load a policy file and report what it declares
  show        Print a policy file, syntax-highlighted on a terminal
`)
}

// runPolicyValidate loads the policy and builds every derived object
// (quorum policy, boundary evaluators) so construction-time errors
// surface here rather than at open time.
func runPolicyValidate(args []string) error {
	flagSet := pflag.NewFlagSet("policy validate", pflag.ContinueOnError)
	policyPath := flagSet.String("policy", "", "policy file (default $WARRANT_POLICY)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	pol, err := resolvePolicy(*policyPath)
	if err != nil {
		return err
	}
	if _, err := pol.Quorum(); err != nil {
		return err
	}
	evaluators, err := pol.Evaluators()
	if err != nil {
		return err
	}

	fmt.Printf("policy OK: %d signers, %d quorum rules, %d boundaries, %d domains\n",
		len(pol.Signers), len(pol.Quorums), len(evaluators), len(pol.EnabledDomains()))
	fmt.Printf("  replay window %s, clock skew %s\n", pol.ReplayWindow(), pol.ClockSkew())
	if pol.Audit.Path != "" {
		fmt.Printf("  audit log: %s\n", pol.Audit.Path)
	}
	return nil
}

// runPolicyShow prints the raw policy file. On a terminal the output
// is syntax-highlighted; piped output stays plain.
func runPolicyShow(args []string) error {
	flagSet := pflag.NewFlagSet("policy show", pflag.ContinueOnError)
	policyPath := flagSet.String("policy", "", "policy file (default $WARRANT_POLICY)")
	plain := flagSet.Bool("plain", false, "disable syntax highlighting")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path := *policyPath
	if path == "" {
		path = os.Getenv("WARRANT_POLICY")
	}
	if path == "" {
		return fmt.Errorf("--policy is required (or set WARRANT_POLICY)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if !*plain && term.IsTerminal(int(os.Stdout.Fd())) {
		language := "yaml"
		if strings.EqualFold(filepath.Ext(path), ".json") {
			language = "json"
		}
		if err := quick.Highlight(os.Stdout, string(data), language, "terminal256", "monokai"); err == nil {
			return nil
		}
		// Unknown lexer or style: fall through to plain output.
	}
	_, err = os.Stdout.Write(data)
	return err
}
