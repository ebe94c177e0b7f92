// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditindex maintains a SQLite query index over a decision
// log. Ingest re-verifies the log's hash chain from genesis and
// indexes entries past a stored watermark, so the index only ever
// holds chain-valid entries and can be extended incrementally as the
// log grows. A log that no longer extends the indexed chain is
// refused; Rebuild starts the index over from the log.
//
// The index is derived data. The JSONL log stays the source of truth,
// and dropping the database loses nothing that one Rebuild cannot
// restore.
package auditindex
