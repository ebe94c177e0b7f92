// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for key material.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, so no stale copy of the master key survives release.
//
// Constructors:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//   - [ReadFromPath] -- reads a key file (or stdin with "-")
//
// Access via [Buffer.Bytes] (slice into the mmap region) or
// [Buffer.String] (heap copy for API boundaries that demand strings).
// [Buffer.Equal] compares in constant time. After Close, any access
// panics. Close is idempotent.
//
// Depends only on golang.org/x/sys/unix. Imported by lib/keyset for
// the master key and by lib/sealed for escrow keypairs.
package secret
