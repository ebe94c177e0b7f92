// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package auditindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/warrant-foundation/warrant/lib/audit"
	"github.com/warrant-foundation/warrant/lib/sqlitepool"
)

// schema creates the entry table and the single-row ingest watermark.
// Timestamps are stored as audit.TimeFormat text: fixed width and
// always UTC, so lexicographic comparison is chronological and range
// filters are plain string comparisons.
const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		seq       INTEGER PRIMARY KEY,
		time      TEXT NOT NULL,
		trace     TEXT NOT NULL,
		decision  TEXT NOT NULL,
		stage     TEXT NOT NULL,
		domain    TEXT NOT NULL DEFAULT '',
		action    TEXT NOT NULL DEFAULT '',
		origin    TEXT NOT NULL DEFAULT '',
		nonce     TEXT NOT NULL DEFAULT '',
		valid     INTEGER NOT NULL,
		required  INTEGER NOT NULL,
		prev_hash TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_time ON entries(time);
	CREATE INDEX IF NOT EXISTS idx_entries_decision ON entries(decision, time);
	CREATE INDEX IF NOT EXISTS idx_entries_stage ON entries(stage, time);
	CREATE INDEX IF NOT EXISTS idx_entries_action ON entries(action, time);
	CREATE INDEX IF NOT EXISTS idx_entries_origin ON entries(origin, time);

	CREATE TABLE IF NOT EXISTS ingest_state (
		id        INTEGER PRIMARY KEY CHECK (id = 1),
		entries   INTEGER NOT NULL,
		last_hash TEXT NOT NULL
	);
`

// Config holds the parameters for opening an index.
type Config struct {
	// Path is the SQLite database file, created if absent.
	Path string

	// PoolSize is the connection count. Zero means the pool default.
	PoolSize int

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger
}

// Index is a SQLite query index over a decision log. It is derived
// data: every row comes from a chain-verified ingest of the JSONL
// log, and the whole database can be rebuilt from the log at any
// time. The log remains the source of truth — the index exists so
// operators can filter months of decisions without rescanning JSONL.
//
// Safe for concurrent use.
type Index struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates the index database. The caller owns the
// index and must Close it.
func Open(cfg Config) (*Index, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("auditindex: %w", err)
	}

	return &Index{pool: pool, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (idx *Index) Close() error {
	return idx.pool.Close()
}

// Ingest indexes the entries of the decision log at logPath that are
// beyond the ingest watermark. The walk re-verifies the hash chain
// from genesis, so only chain-valid entries ever enter the index, and
// a log that does not extend the previously indexed chain (rotated,
// rewritten, truncated) is refused rather than silently mixed in.
// Returns the number of entries added; everything happens in one
// transaction, so a failed ingest leaves the index untouched.
func (idx *Index) Ingest(ctx context.Context, logPath string) (int, error) {
	return idx.ingest(ctx, logPath, false)
}

// Rebuild discards the index contents and ingests the log from
// scratch. This is the recovery path Ingest points at when the log
// on disk no longer extends the indexed chain.
func (idx *Index) Rebuild(ctx context.Context, logPath string) (int, error) {
	return idx.ingest(ctx, logPath, true)
}

func (idx *Index) ingest(ctx context.Context, logPath string, rebuild bool) (added int, err error) {
	file, err := os.Open(logPath)
	if err != nil {
		return 0, fmt.Errorf("auditindex: %w", err)
	}
	defer file.Close()

	conn, err := idx.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("auditindex: ingest: %w", err)
	}
	defer idx.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("auditindex: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	if rebuild {
		if err = sqlitex.ExecuteScript(conn, "DELETE FROM entries; DELETE FROM ingest_state;", nil); err != nil {
			return 0, fmt.Errorf("auditindex: clearing index: %w", err)
		}
	}

	indexed, indexedHash, err := loadState(conn)
	if err != nil {
		return 0, err
	}

	entries, lastHash, err := audit.Walk(file, func(seq int, entry audit.Entry) error {
		if seq <= indexed {
			return nil
		}
		if seq == indexed+1 && indexed > 0 && entry.PrevHash != indexedHash {
			// The walk proved this log self-consistent, but its
			// prefix is not the one the index ingested.
			return fmt.Errorf("log does not extend the indexed chain (%d entries indexed); rebuild the index", indexed)
		}
		if err := insertEntry(conn, seq, entry); err != nil {
			return fmt.Errorf("inserting entry %d: %w", seq, err)
		}
		added++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("auditindex: %s: %w", logPath, err)
	}
	if entries < indexed {
		return 0, fmt.Errorf("auditindex: %s: log has %d entries but the index holds %d; rebuild the index", logPath, entries, indexed)
	}
	if entries == indexed && indexed > 0 && lastHash != indexedHash {
		return 0, fmt.Errorf("auditindex: %s: log does not extend the indexed chain; rebuild the index", logPath)
	}

	if err = saveState(conn, entries, lastHash); err != nil {
		return 0, err
	}

	if added > 0 {
		idx.logger.Info("audit entries indexed", "path", logPath, "added", added, "total", entries)
	}
	return added, nil
}

func loadState(conn *sqlite.Conn) (indexed int, lastHash string, err error) {
	lastHash = audit.Genesis
	err = sqlitex.Execute(conn, "SELECT entries, last_hash FROM ingest_state WHERE id = 1", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			indexed = stmt.ColumnInt(0)
			lastHash = stmt.ColumnText(1)
			return nil
		},
	})
	if err != nil {
		return 0, "", fmt.Errorf("auditindex: reading ingest state: %w", err)
	}
	return indexed, lastHash, nil
}

func saveState(conn *sqlite.Conn, entries int, lastHash string) error {
	err := sqlitex.Execute(conn, `INSERT INTO ingest_state (id, entries, last_hash) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET entries = excluded.entries, last_hash = excluded.last_hash`,
		&sqlitex.ExecOptions{Args: []any{entries, lastHash}})
	if err != nil {
		return fmt.Errorf("auditindex: saving ingest state: %w", err)
	}
	return nil
}

func insertEntry(conn *sqlite.Conn, seq int, entry audit.Entry) error {
	return sqlitex.Execute(conn, `INSERT INTO entries
		(seq, time, trace, decision, stage, domain, action, origin, nonce, valid, required, prev_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				seq,
				entry.Time,
				entry.Trace,
				entry.Decision,
				entry.Stage,
				entry.Domain,
				entry.Action,
				entry.Origin,
				entry.Nonce,
				entry.Valid,
				entry.Required,
				entry.PrevHash,
			},
		})
}

// Filter specifies the criteria for querying entries. All fields are
// optional; zero-valued fields are not applied.
type Filter struct {
	Decision string    // Exact match: allow, quarantine, or deny.
	Stage    string    // Exact match on verification stage.
	Domain   string    // Exact match on domain name.
	Action   string    // Prefix match on action.
	Origin   string    // Exact match on origin key ID.
	Trace    string    // Exact match on trace UUID.
	Since    time.Time // Earliest entry time, inclusive.
	Until    time.Time // Latest entry time, inclusive.
	Limit    int       // Maximum rows to return (default 100).
}

// Row is one indexed entry with its position in the chain.
type Row struct {
	Seq int
	audit.Entry
}

// Query returns entries matching the filter, newest first.
func (idx *Index) Query(ctx context.Context, filter Filter) ([]Row, error) {
	conn, err := idx.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("auditindex: query: %w", err)
	}
	defer idx.pool.Put(conn)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var conditions []string
	var args []any

	if filter.Decision != "" {
		conditions = append(conditions, "decision = ?")
		args = append(args, filter.Decision)
	}
	if filter.Stage != "" {
		conditions = append(conditions, "stage = ?")
		args = append(args, filter.Stage)
	}
	if filter.Domain != "" {
		conditions = append(conditions, "domain = ?")
		args = append(args, filter.Domain)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action LIKE ?")
		args = append(args, filter.Action+"%")
	}
	if filter.Origin != "" {
		conditions = append(conditions, "origin = ?")
		args = append(args, filter.Origin)
	}
	if filter.Trace != "" {
		conditions = append(conditions, "trace = ?")
		args = append(args, filter.Trace)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "time >= ?")
		args = append(args, filter.Since.UTC().Format(audit.TimeFormat))
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "time <= ?")
		args = append(args, filter.Until.UTC().Format(audit.TimeFormat))
	}

	query := "SELECT seq, time, trace, decision, stage, domain, action, origin, nonce, valid, required, prev_hash FROM entries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	var rows []Row
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = append(rows, scanRow(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("auditindex: query: %w", err)
	}
	return rows, nil
}

func scanRow(stmt *sqlite.Stmt) Row {
	return Row{
		Seq: stmt.ColumnInt(0),
		Entry: audit.Entry{
			Time:     stmt.ColumnText(1),
			Trace:    stmt.ColumnText(2),
			Decision: stmt.ColumnText(3),
			Stage:    stmt.ColumnText(4),
			Domain:   stmt.ColumnText(5),
			Action:   stmt.ColumnText(6),
			Origin:   stmt.ColumnText(7),
			Nonce:    stmt.ColumnText(8),
			Valid:    stmt.ColumnInt(9),
			Required: stmt.ColumnInt(10),
			PrevHash: stmt.ColumnText(11),
		},
	}
}

// Summary is the per-decision entry count for the index.
type Summary struct {
	Entries    int
	Allow      int
	Quarantine int
	Deny       int
}

// Summarize counts indexed entries by decision.
func (idx *Index) Summarize(ctx context.Context) (Summary, error) {
	conn, err := idx.pool.Take(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("auditindex: summarize: %w", err)
	}
	defer idx.pool.Put(conn)

	var summary Summary
	err = sqlitex.Execute(conn, "SELECT decision, COUNT(*) FROM entries GROUP BY decision", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count := stmt.ColumnInt(1)
			summary.Entries += count
			switch stmt.ColumnText(0) {
			case "allow":
				summary.Allow = count
			case "quarantine":
				summary.Quarantine = count
			case "deny":
				summary.Deny = count
			}
			return nil
		},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("auditindex: summarize: %w", err)
	}
	return summary, nil
}
