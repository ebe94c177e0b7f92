// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records verification decisions in an append-only,
// hash-chained JSONL log.
//
// Each line is one JSON entry carrying a prev_hash: the SHA-256 of
// the previous line's exact bytes, hex encoded, with a fixed genesis
// sentinel for the first. A reader holding the final hash can detect
// truncation or modification anywhere earlier in the file; Verify
// walks the whole chain and reports the first break.
//
// The log is the one place the protocol's deliberate ambiguity is
// resolved: externally, a replayed envelope, a forged signature, and
// a quorum shortfall all produce the same deny-shaped noise, and only
// the stage column here tells them apart. That makes the log
// sensitive — it is written 0600 and holds metadata only, never
// payloads.
//
// Timestamps come from an injected clock, so tests produce
// byte-stable logs, and every entry carries a fresh UUID trace id for
// cross-referencing with downstream systems.
package audit
