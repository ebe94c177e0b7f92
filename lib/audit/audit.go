// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/warrant-foundation/warrant/lib/clock"
	"github.com/warrant-foundation/warrant/lib/envelope"
)

// Genesis is the prev_hash of the first entry in every log: a fixed
// non-zero sentinel, so an accidentally blank field can never verify
// as the start of a chain.
const Genesis = "warrant/audit/genesis/v1"

// TimeFormat is RFC 3339 with millisecond precision. Every entry
// timestamp uses it, always in UTC.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// maxLineBytes bounds a single log line during scans. Entries are a
// few hundred bytes; anything near this limit is corruption.
const maxLineBytes = 1 << 20

// Entry is one line of the decision log.
type Entry struct {
	// Time is when the decision was recorded, in TimeFormat.
	Time string `json:"time"`

	// Trace is a fresh UUID identifying this entry.
	Trace string `json:"trace"`

	// Decision is allow, quarantine, or deny.
	Decision string `json:"decision"`

	// Stage is how far verification progressed. This log is the only
	// place a replayed envelope and a forged one look different.
	Stage string `json:"stage"`

	Domain string `json:"domain,omitempty"`
	Action string `json:"action,omitempty"`
	Origin string `json:"origin,omitempty"`

	// Nonce is the first eight hex characters of the envelope nonce.
	Nonce string `json:"nonce,omitempty"`

	// Valid and Required count signers for the quorum check.
	Valid    int `json:"valid"`
	Required int `json:"required"`

	// PrevHash is the SHA-256 of the previous line's bytes, hex
	// encoded, or Genesis for the first entry. Stamped by Append;
	// caller values are ignored.
	PrevHash string `json:"prev_hash"`
}

// Log is an append-only, hash-chained JSONL decision log. Each line
// commits to every line before it, so truncation or edits anywhere
// but the tail are detectable. Safe for concurrent use.
//
// Log implements envelope.Recorder: recording swallows its own
// failures (reported through the logger) so an audit problem can
// never change a verification outcome.
type Log struct {
	mu       sync.Mutex
	file     *os.File
	clk      clock.Clock
	logger   *slog.Logger
	lastHash string
}

// Option configures a Log.
type Option func(*Log)

// WithLogger directs operational messages (append failures, torn-line
// recovery) to the given logger. If unset, they are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// Open opens the log at path for appending, creating the file and its
// directory if needed. An existing log is continued: the chain picks
// up from the hash of its final line. A file that ends mid-line
// (torn write) is sealed with a newline so the damage stays confined
// to that one entry, where Verify will report it.
func Open(path string, clk clock.Clock, options ...Option) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: creating log directory: %w", err)
		}
	}

	lastHash, torn, err := scanTail(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: opening log: %w", err)
	}

	log := &Log{
		file:     file,
		clk:      clk,
		logger:   slog.New(slog.DiscardHandler),
		lastHash: lastHash,
	}
	for _, option := range options {
		option(log)
	}

	if torn {
		if _, err := file.WriteString("\n"); err != nil {
			file.Close()
			return nil, fmt.Errorf("audit: sealing torn entry: %w", err)
		}
		log.logger.Warn("audit log ended mid-line, sealed the torn entry", "path", path)
	}

	return log, nil
}

// scanTail finds the hash the next entry must chain from: Genesis for
// a missing or empty file, otherwise the SHA-256 of the last
// non-blank line. It also reports whether the file ends mid-line.
func scanTail(path string) (lastHash string, torn bool, err error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Genesis, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("audit: reading log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var last []byte
	for scanner.Scan() {
		if raw := scanner.Bytes(); len(bytes.TrimSpace(raw)) > 0 {
			last = append(last[:0], raw...)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("audit: reading log: %w", err)
	}
	if last == nil {
		return Genesis, false, nil
	}

	info, err := file.Stat()
	if err != nil {
		return "", false, fmt.Errorf("audit: reading log: %w", err)
	}
	if info.Size() > 0 {
		final := make([]byte, 1)
		if _, err := file.ReadAt(final, info.Size()-1); err != nil {
			return "", false, fmt.Errorf("audit: reading log: %w", err)
		}
		torn = final[0] != '\n'
	}

	digest := sha256.Sum256(last)
	return hex.EncodeToString(digest[:]), torn, nil
}

// Append writes one entry, stamping its PrevHash from the chain. The
// hash covers the exact bytes written, so any later edit to the line
// breaks verification of its successor.
func (l *Log) Append(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.PrevHash = l.lastHash
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: encoding entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: appending entry: %w", err)
	}

	// The line is in the file now: advance the chain before reporting
	// any sync problem, or the next entry would reuse this prev_hash
	// and break verification.
	digest := sha256.Sum256(line)
	l.lastHash = hex.EncodeToString(digest[:])

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: syncing log: %w", err)
	}
	return nil
}

// Record implements envelope.Recorder. It stamps the entry with the
// injected clock and a fresh trace ID, then appends it. Failures are
// logged and swallowed: the decision has already been made and must
// not depend on the log.
func (l *Log) Record(rec envelope.Record) {
	entry := Entry{
		Time:     l.clk.Now().UTC().Format(TimeFormat),
		Trace:    uuid.NewString(),
		Decision: rec.Decision.String(),
		Stage:    rec.Stage.String(),
		Domain:   rec.Domain.String(),
		Action:   rec.Action,
		Origin:   rec.Origin,
		Nonce:    rec.NoncePrefix,
		Valid:    rec.ValidCount,
		Required: rec.RequiredCount,
	}
	if err := l.Append(entry); err != nil {
		l.logger.Error("audit append failed", "error", err, "action", rec.Action, "decision", entry.Decision)
	}
}

// LastHash returns the hash the next entry will chain from.
func (l *Log) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHash
}

// Close closes the underlying file. Records after Close are swallowed
// like any other append failure.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
