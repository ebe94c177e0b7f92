// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the warrant-standard SQLite connection
// pool.
//
// Warrant keeps its source of truth in append-only, hash-chained
// logs; SQLite holds derived data — the audit index and similar
// stores that can always be rebuilt by re-ingesting a log. The pool
// wraps zombiezen.com/go/sqlite with defaults chosen for that
// posture: WAL journaling, NORMAL synchronous (an OS crash can cost
// recent index rows, never the log), memory-mapped reads, and a busy
// timeout so bursts of writes degrade to waiting instead of
// SQLITE_BUSY errors.
//
// Callers [Pool.Take] a connection, work, and [Pool.Put] it back.
// The pool is safe for concurrent use; individual connections are
// not — each goroutine holds its own for the duration of its work.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous=NORMAL: commits survive process crashes. Databases
//     opened through this pool are indexes over replayable logs, so
//     OS-crash loss is acceptable by construction.
//   - busy_timeout=5000: wait up to five seconds for the write lock.
//   - foreign_keys=OFF: integrity lives in the chained log, not in
//     cascade rules over a derived table.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - mmap_size=268435456: 256 MB memory-mapped reads.
//   - temp_store=MEMORY: temporary indexes stay off disk.
//
// # Design
//
// The package is deliberately thin: standard pragmas, a fixed-size
// sqlitex.Pool, and the underlying zombiezen types exposed directly.
// Callers write SQL and manage transactions with sqlitex; there is no
// query builder and no abstraction over SQLite's connection model.
package sqlitepool
