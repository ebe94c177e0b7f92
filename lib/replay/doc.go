// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package replay provides the nonce cache that gives envelope
// verification its exactly-once property.
//
// The protocol core depends on a single atomic operation,
// [Cache.CheckAndStore]: test whether a nonce has been seen inside the
// retention window and record it, as one indivisible step. Two
// concurrent verifications of the same envelope must never both
// observe "unseen" — whichever loses the race sees a replay.
//
// Two implementations:
//
//   - [MemoryCache] -- a locked map with lazy pruning, for
//     single-process deployments. Time is supplied by the caller, so
//     tests drive expiry without sleeping.
//   - [RedisCache] -- SET NX PX against a shared redis, for fleets of
//     verifiers that must share replay state. Expiry is enforced by
//     redis TTLs; the adapter fails closed when redis is unreachable,
//     because a replay cache that fails open is not a replay cache.
//
// Retention must cover the freshness window plus the clock-skew
// tolerance: an envelope accepted at the far edge of permitted skew
// still needs its nonce held long enough to block every replay that
// could pass the freshness check.
package replay
