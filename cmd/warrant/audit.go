// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/warrant-foundation/warrant/lib/audit"
	"github.com/warrant-foundation/warrant/lib/auditindex"
	"github.com/warrant-foundation/warrant/lib/auditui"
)

func runAudit(args []string) error {
	if len(args) < 1 {
		printAuditUsage()
		return fmt.Errorf("audit subcommand required")
	}
	switch args[0] {
	case "verify":
		return runAuditVerify(args[1:])
	case "query":
		return runAuditQuery(args[1:])
	case "view":
		return runAuditView(args[1:])
	case "-h", "--help", "help":
		printAuditUsage()
		return nil
	default:
		printAuditUsage()
		return fmt.Errorf("unknown audit subcommand: %q", args[0])
	}
}

func printAuditUsage() {
	fmt.Fprintf(os.Stderr, `Usage: warrant audit <subcommand> [flags]

Subcommands:
  verify      Check the audit log's hash chain end to end
  query       Search the audit log through its sqlite index
  view        Browse the audit log in a full-screen terminal UI
`)
}

// resolveAuditLog returns the audit log path: the --log flag if set,
// otherwise the policy's audit.path.
func resolveAuditLog(logPath, policyPath string) (string, error) {
	if logPath != "" {
		return logPath, nil
	}
	pol, err := resolvePolicy(policyPath)
	if err != nil {
		return "", err
	}
	if pol.Audit.Path == "" {
		return "", fmt.Errorf("policy declares no audit.path; pass --log")
	}
	return pol.Audit.Path, nil
}

// runAuditVerify re-derives the hash chain over the whole log.
func runAuditVerify(args []string) error {
	flagSet := pflag.NewFlagSet("audit verify", pflag.ContinueOnError)
	logPath := flagSet.String("log", "", "audit log file (default: the policy's audit.path)")
	policyPath := flagSet.String("policy", "", "policy file (default $WARRANT_POLICY)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path, err := resolveAuditLog(*logPath, *policyPath)
	if err != nil {
		return err
	}
	entries, err := audit.VerifyFile(path)
	if err != nil {
		return fmt.Errorf("audit log %s: %w", path, err)
	}
	fmt.Printf("audit log OK: %d entries, chain intact\n", entries)
	return nil
}

// runAuditQuery ingests new entries into the sqlite index and runs a
// filtered query against it.
func runAuditQuery(args []string) error {
	flagSet := pflag.NewFlagSet("audit query", pflag.ContinueOnError)
	logPath := flagSet.String("log", "", "audit log file (default: the policy's audit.path)")
	policyPath := flagSet.String("policy", "", "policy file (default $WARRANT_POLICY)")
	dbPath := flagSet.String("db", "", "sqlite index file (default: the log path plus .db)")
	decision := flagSet.String("decision", "", "filter: allow, quarantine, or deny")
	stage := flagSet.String("stage", "", "filter: exact verification stage")
	domain := flagSet.String("domain", "", "filter: exact domain name")
	action := flagSet.String("action", "", "filter: action prefix")
	origin := flagSet.String("origin", "", "filter: exact origin")
	trace := flagSet.String("trace", "", "filter: exact trace UUID")
	since := flagSet.String("since", "", "filter: earliest entry time (RFC 3339 or YYYY-MM-DD)")
	until := flagSet.String("until", "", "filter: latest entry time (RFC 3339 or YYYY-MM-DD)")
	limit := flagSet.Int("limit", 0, "maximum rows (default 100)")
	rebuild := flagSet.Bool("rebuild", false, "drop the index and re-ingest the whole log")
	asJSON := flagSet.Bool("json", false, "print rows as JSON instead of a table")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path, err := resolveAuditLog(*logPath, *policyPath)
	if err != nil {
		return err
	}
	indexPath := *dbPath
	if indexPath == "" {
		indexPath = path + ".db"
	}

	filter := auditindex.Filter{
		Decision: *decision,
		Stage:    *stage,
		Domain:   *domain,
		Action:   *action,
		Origin:   *origin,
		Trace:    *trace,
		Limit:    *limit,
	}
	if filter.Since, err = parseTimeFlag(*since); err != nil {
		return fmt.Errorf("--since: %w", err)
	}
	if filter.Until, err = parseTimeFlag(*until); err != nil {
		return fmt.Errorf("--until: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	index, err := auditindex.Open(auditindex.Config{Path: indexPath, Logger: newLogger()})
	if err != nil {
		return err
	}
	defer index.Close()

	var added int
	if *rebuild {
		added, err = index.Rebuild(ctx, path)
	} else {
		added, err = index.Ingest(ctx, path)
	}
	if err != nil {
		return err
	}

	rows, err := index.Query(ctx, filter)
	if err != nil {
		return err
	}

	if *asJSON {
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding rows: %w", err)
		}
		fmt.Println(string(out))
	} else {
		printRowTable(rows)
	}
	fmt.Fprintf(os.Stderr, "%d row(s), %d newly indexed\n", len(rows), added)
	return nil
}

// printRowTable renders query rows in fixed columns, newest first.
func printRowTable(rows []auditindex.Row) {
	if len(rows) == 0 {
		fmt.Println("no matching entries")
		return
	}
	fmt.Printf("%-5s %-24s %-10s %-18s %-16s %-20s %s\n",
		"SEQ", "TIME", "DECISION", "STAGE", "DOMAIN", "ACTION", "SIGNERS")
	for _, row := range rows {
		fmt.Printf("%-5d %-24s %-10s %-18s %-16s %-20s %d/%d\n",
			row.Seq, row.Time, row.Decision, row.Stage, row.Domain, row.Action,
			row.Valid, row.Required)
	}
}

// parseTimeFlag accepts RFC 3339 timestamps or bare dates.
func parseTimeFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 or YYYY-MM-DD, got %q", value)
	}
	return t, nil
}

// runAuditView loads the whole log (verifying the chain on the way)
// and opens the interactive viewer, newest entries first.
func runAuditView(args []string) error {
	flagSet := pflag.NewFlagSet("audit view", pflag.ContinueOnError)
	logPath := flagSet.String("log", "", "audit log file (default: the policy's audit.path)")
	policyPath := flagSet.String("policy", "", "policy file (default $WARRANT_POLICY)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path, err := resolveAuditLog(*logPath, *policyPath)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var rows []auditindex.Row
	_, _, err = audit.Walk(file, func(seq int, entry audit.Entry) error {
		rows = append(rows, auditindex.Row{Seq: seq, Entry: entry})
		return nil
	})
	if err != nil {
		return fmt.Errorf("audit log %s: %w (run 'warrant audit verify')", path, err)
	}
	slices.Reverse(rows)

	// The viewer's styles assume a 256-color palette; pin the profile
	// rather than trusting terminal detection under multiplexers.
	lipgloss.SetColorProfile(termenv.ANSI256)

	program := tea.NewProgram(auditui.NewModel(rows), tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}
