// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Walk reads a decision log, checking the hash chain as it goes, and
// calls fn for each verified entry with its 1-based position. It stops
// at the first problem: a malformed line, a prev_hash that does not
// commit to the line before it, or an error from fn. Blank lines are
// skipped on both the write and read sides, so they can never shift
// the chain.
//
// Walk returns the number of entries that verified and the hash the
// chain ends on (Genesis for an empty log). The final hash is the
// only defense against tail truncation: a reader who records it out
// of band can prove the log has not been shortened.
func Walk(r io.Reader, fn func(seq int, entry Entry) error) (int, string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	want := Genesis
	line := 0
	verified := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return verified, want, fmt.Errorf("line %d: malformed entry: %w", line, err)
		}
		if entry.PrevHash != want {
			return verified, want, fmt.Errorf("line %d: chain break: prev_hash %q, want %q", line, entry.PrevHash, want)
		}

		digest := sha256.Sum256(raw)
		want = hex.EncodeToString(digest[:])
		verified++

		if fn != nil {
			if err := fn(verified, entry); err != nil {
				return verified, want, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return verified, want, fmt.Errorf("line %d: %w", line, err)
	}
	return verified, want, nil
}

// Verify walks a decision log and checks the hash chain. It returns
// the number of entries that verified and the first problem found.
func Verify(r io.Reader) (int, error) {
	verified, _, err := Walk(r, nil)
	return verified, err
}

// VerifyFile opens path and verifies its chain.
func VerifyFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audit: %w", err)
	}
	defer file.Close()

	verified, err := Verify(file)
	if err != nil {
		return verified, fmt.Errorf("audit: %s: %w", path, err)
	}
	return verified, nil
}
