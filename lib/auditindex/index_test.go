// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditindex_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/warrant-foundation/warrant/lib/audit"
	"github.com/warrant-foundation/warrant/lib/auditindex"
	"github.com/warrant-foundation/warrant/lib/clock"
	"github.com/warrant-foundation/warrant/lib/envelope"
)

var indexTestEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testDecisions is the standard five-entry log used across tests:
// three allows, one quorum shortfall, one replay.
func testDecisions() []envelope.Record {
	return []envelope.Record{
		{Decision: envelope.Allow, Stage: envelope.StageOK, Domain: envelope.DomainEscrow, Action: "escrow/release", Origin: "alice", NoncePrefix: "00aa11bb", RequiredCount: 3, ValidCount: 3},
		{Decision: envelope.Allow, Stage: envelope.StageOK, Domain: envelope.DomainCommand, Action: "volume/mount", Origin: "bob", NoncePrefix: "22cc33dd", RequiredCount: 2, ValidCount: 2},
		{Decision: envelope.Quarantine, Stage: envelope.StageQuorum, Domain: envelope.DomainEscrow, Action: "escrow/release", Origin: "carol", NoncePrefix: "44ee55ff", RequiredCount: 3, ValidCount: 1},
		{Decision: envelope.Deny, Stage: envelope.StageReplay, Domain: envelope.DomainCommand, Action: "volume/delete", Origin: "alice", NoncePrefix: "66001122", RequiredCount: 2, ValidCount: 0},
		{Decision: envelope.Allow, Stage: envelope.StageOK, Domain: envelope.DomainConfig, Action: "policy/update", Origin: "bob", NoncePrefix: "88334455", RequiredCount: 2, ValidCount: 2},
	}
}

// writeDecisions appends records to the log at path, one second
// apart, starting at epoch. The log is a real chained log written
// through the audit package.
func writeDecisions(t *testing.T, path string, epoch time.Time, records []envelope.Record) {
	t.Helper()
	clk := clock.Fake(epoch)
	log, err := audit.Open(path, clk)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	for _, rec := range records {
		log.Record(rec)
		clk.Advance(time.Second)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("closing log: %v", err)
	}
}

func openTestIndex(t *testing.T) *auditindex.Index {
	t.Helper()
	idx, err := auditindex.Open(auditindex.Config{
		Path:     filepath.Join(t.TempDir(), "audit-index.db"),
		PoolSize: 2,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := idx.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return idx
}

// seqs extracts the Seq column for order assertions.
func seqs(rows []auditindex.Row) []int {
	out := make([]int, len(rows))
	for i, row := range rows {
		out[i] = row.Seq
	}
	return out
}

func TestIngestAndQuery(t *testing.T) {
	idx := openTestIndex(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeDecisions(t, logPath, indexTestEpoch, testDecisions())
	ctx := context.Background()

	added, err := idx.Ingest(ctx, logPath)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if added != 5 {
		t.Fatalf("added = %d, want 5", added)
	}

	rows, err := idx.Query(ctx, auditindex.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}

	// Newest first.
	if rows[0].Seq != 5 || rows[0].Action != "policy/update" {
		t.Errorf("rows[0] = seq %d action %q, want seq 5 action policy/update", rows[0].Seq, rows[0].Action)
	}
	if rows[4].Seq != 1 || rows[4].Action != "escrow/release" {
		t.Errorf("rows[4] = seq %d action %q, want seq 1 action escrow/release", rows[4].Seq, rows[4].Action)
	}

	// Full column round-trip on one row.
	first := rows[4]
	if first.Time != "2026-03-01T12:00:00.000Z" {
		t.Errorf("Time = %q", first.Time)
	}
	if first.Decision != "allow" || first.Stage != "ok" {
		t.Errorf("Decision/Stage = %q/%q", first.Decision, first.Stage)
	}
	if first.Domain != "warrant/escrow" || first.Origin != "alice" {
		t.Errorf("Domain/Origin = %q/%q", first.Domain, first.Origin)
	}
	if first.Nonce != "00aa11bb" || first.Valid != 3 || first.Required != 3 {
		t.Errorf("Nonce/Valid/Required = %q/%d/%d", first.Nonce, first.Valid, first.Required)
	}
	if first.PrevHash != audit.Genesis {
		t.Errorf("PrevHash = %q, want Genesis", first.PrevHash)
	}
}

func TestQueryFilters(t *testing.T) {
	idx := openTestIndex(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeDecisions(t, logPath, indexTestEpoch, testDecisions())
	ctx := context.Background()

	if _, err := idx.Ingest(ctx, logPath); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	tests := []struct {
		name     string
		filter   auditindex.Filter
		wantSeqs []int
	}{
		{"by decision", auditindex.Filter{Decision: "deny"}, []int{4}},
		{"by stage", auditindex.Filter{Stage: "quorum"}, []int{3}},
		{"by domain", auditindex.Filter{Domain: "warrant/escrow"}, []int{3, 1}},
		{"by action prefix", auditindex.Filter{Action: "escrow/"}, []int{3, 1}},
		{"by exact action", auditindex.Filter{Action: "volume/delete"}, []int{4}},
		{"by origin", auditindex.Filter{Origin: "bob"}, []int{5, 2}},
		{"since is inclusive", auditindex.Filter{Since: indexTestEpoch.Add(3 * time.Second)}, []int{5, 4}},
		{"until is inclusive", auditindex.Filter{Until: indexTestEpoch.Add(time.Second)}, []int{2, 1}},
		{"time window", auditindex.Filter{Since: indexTestEpoch.Add(time.Second), Until: indexTestEpoch.Add(3 * time.Second)}, []int{4, 3, 2}},
		{"limit keeps newest", auditindex.Filter{Limit: 2}, []int{5, 4}},
		{"combined", auditindex.Filter{Decision: "allow", Origin: "bob"}, []int{5, 2}},
		{"no matches", auditindex.Filter{Decision: "allow", Stage: "replay"}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := idx.Query(ctx, tc.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			got := seqs(rows)
			if len(got) != len(tc.wantSeqs) {
				t.Fatalf("got seqs %v, want %v", got, tc.wantSeqs)
			}
			for i := range got {
				if got[i] != tc.wantSeqs[i] {
					t.Fatalf("got seqs %v, want %v", got, tc.wantSeqs)
				}
			}
		})
	}
}

func TestQueryByTrace(t *testing.T) {
	idx := openTestIndex(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeDecisions(t, logPath, indexTestEpoch, testDecisions())
	ctx := context.Background()

	if _, err := idx.Ingest(ctx, logPath); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	all, err := idx.Query(ctx, auditindex.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	rows, err := idx.Query(ctx, auditindex.Filter{Trace: all[2].Trace})
	if err != nil {
		t.Fatalf("Query by trace: %v", err)
	}
	if len(rows) != 1 || rows[0].Seq != all[2].Seq {
		t.Errorf("trace query returned %v, want the single entry with seq %d", seqs(rows), all[2].Seq)
	}
}

func TestIngest_Incremental(t *testing.T) {
	idx := openTestIndex(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeDecisions(t, logPath, indexTestEpoch, testDecisions()[:3])
	ctx := context.Background()

	added, err := idx.Ingest(ctx, logPath)
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if added != 3 {
		t.Fatalf("first ingest added %d, want 3", added)
	}

	// Nothing new: a no-op, not an error.
	added, err = idx.Ingest(ctx, logPath)
	if err != nil {
		t.Fatalf("repeat Ingest: %v", err)
	}
	if added != 0 {
		t.Errorf("repeat ingest added %d, want 0", added)
	}

	// The log grows; only the new tail is ingested.
	writeDecisions(t, logPath, indexTestEpoch.Add(time.Hour), testDecisions()[3:])
	added, err = idx.Ingest(ctx, logPath)
	if err != nil {
		t.Fatalf("incremental Ingest: %v", err)
	}
	if added != 2 {
		t.Errorf("incremental ingest added %d, want 2", added)
	}

	rows, err := idx.Query(ctx, auditindex.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("got %d rows, want 5", len(rows))
	}
	if rows[0].Time != "2026-03-01T13:00:01.000Z" {
		t.Errorf("newest entry time = %q", rows[0].Time)
	}
}

func TestIngest_RefusesRewrittenLog(t *testing.T) {
	ctx := context.Background()

	// Each case ingests a three-entry log, replaces it on disk, and
	// expects the next ingest to refuse the replacement.
	rewrite := func(t *testing.T, records []envelope.Record) error {
		t.Helper()
		idx := openTestIndex(t)
		logPath := filepath.Join(t.TempDir(), "audit.jsonl")
		writeDecisions(t, logPath, indexTestEpoch, testDecisions()[:3])
		if _, err := idx.Ingest(ctx, logPath); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if err := os.Remove(logPath); err != nil {
			t.Fatalf("removing log: %v", err)
		}
		writeDecisions(t, logPath, indexTestEpoch.Add(time.Hour), records)
		_, err := idx.Ingest(ctx, logPath)
		return err
	}

	t.Run("same length", func(t *testing.T) {
		err := rewrite(t, testDecisions()[:3])
		if err == nil || !strings.Contains(err.Error(), "rebuild the index") {
			t.Fatalf("err = %v, want a rebuild refusal", err)
		}
	})

	t.Run("longer", func(t *testing.T) {
		err := rewrite(t, testDecisions())
		if err == nil || !strings.Contains(err.Error(), "rebuild the index") {
			t.Fatalf("err = %v, want a rebuild refusal", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		err := rewrite(t, testDecisions()[:2])
		if err == nil || !strings.Contains(err.Error(), "rebuild the index") {
			t.Fatalf("err = %v, want a rebuild refusal", err)
		}
		if !strings.Contains(err.Error(), "log has 2 entries") {
			t.Errorf("err = %v, want the entry counts named", err)
		}
	})
}

func TestRebuild(t *testing.T) {
	idx := openTestIndex(t)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.jsonl")
	writeDecisions(t, logPath, indexTestEpoch, testDecisions()[:3])
	ctx := context.Background()

	if _, err := idx.Ingest(ctx, logPath); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// The log is rotated out from under the index.
	if err := os.Remove(logPath); err != nil {
		t.Fatalf("removing log: %v", err)
	}
	writeDecisions(t, logPath, indexTestEpoch.Add(time.Hour), testDecisions())

	if _, err := idx.Ingest(ctx, logPath); err == nil {
		t.Fatal("Ingest accepted a rewritten log")
	}

	added, err := idx.Rebuild(ctx, logPath)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if added != 5 {
		t.Errorf("Rebuild added %d, want 5", added)
	}

	summary, err := idx.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Entries != 5 {
		t.Errorf("Entries = %d, want 5", summary.Entries)
	}

	// And the rebuilt index extends incrementally again.
	writeDecisions(t, logPath, indexTestEpoch.Add(2*time.Hour), testDecisions()[:1])
	added, err = idx.Ingest(ctx, logPath)
	if err != nil {
		t.Fatalf("Ingest after Rebuild: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
}

func TestIngest_ChainBreakRollsBack(t *testing.T) {
	idx := openTestIndex(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeDecisions(t, logPath, indexTestEpoch, testDecisions())

	// Tamper with the first entry: its successor's prev_hash no
	// longer matches.
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	tampered := bytes.Replace(data, []byte(`"origin":"alice"`), []byte(`"origin":"frank"`), 1)
	if bytes.Equal(tampered, data) {
		t.Fatal("tamper target not found")
	}
	if err := os.WriteFile(logPath, tampered, 0o600); err != nil {
		t.Fatalf("writing tampered log: %v", err)
	}

	ctx := context.Background()
	_, err = idx.Ingest(ctx, logPath)
	if err == nil || !strings.Contains(err.Error(), "chain break") {
		t.Fatalf("err = %v, want a chain break", err)
	}

	// The failed ingest must leave nothing behind.
	summary, err := idx.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Entries != 0 {
		t.Errorf("Entries = %d after a failed ingest, want 0", summary.Entries)
	}
}

func TestSummarize(t *testing.T) {
	idx := openTestIndex(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	writeDecisions(t, logPath, indexTestEpoch, testDecisions())
	ctx := context.Background()

	if _, err := idx.Ingest(ctx, logPath); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	summary, err := idx.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := auditindex.Summary{Entries: 5, Allow: 3, Quarantine: 1, Deny: 1}
	if summary != want {
		t.Errorf("Summarize = %+v, want %+v", summary, want)
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	idx := openTestIndex(t)

	rows, err := idx.Query(context.Background(), auditindex.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows from an empty index", len(rows))
	}
}

func TestIngest_EmptyLog(t *testing.T) {
	idx := openTestIndex(t)
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := os.WriteFile(logPath, nil, 0o600); err != nil {
		t.Fatalf("creating empty log: %v", err)
	}
	ctx := context.Background()

	added, err := idx.Ingest(ctx, logPath)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d for an empty log, want 0", added)
	}

	// The log starts later; ingest picks it up from genesis.
	writeDecisions(t, logPath, indexTestEpoch, testDecisions()[:2])
	added, err = idx.Ingest(ctx, logPath)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
}

func TestIngest_MissingLog(t *testing.T) {
	idx := openTestIndex(t)

	if _, err := idx.Ingest(context.Background(), filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected an error for a missing log")
	}
}
