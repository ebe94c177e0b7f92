// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope implements sealed authorization envelopes: encrypted,
// multi-signed messages that gate privileged actions behind a signer
// quorum.
//
// A [Sealer] wraps a payload in an [Envelope]: canonical CBOR encoding,
// optional compression, a derived-keystream cipher over the payload, and
// one keyed BLAKE3 MAC per signer over the full signing base. A
// [Verifier] runs the fixed nine-step pipeline — structure, freshness,
// domain, quorum lookup, origin signature, replay, remaining signatures,
// quorum coverage, payload opening — and returns a [Decision]: Allow,
// Quarantine, or Deny.
//
// # Signing base
//
// Every signature covers the canonical CBOR encoding of every envelope
// field except Signatures itself (see [Envelope.SigningBase]). The
// KeyIDs map is inside the base, so key-generation claims cannot be
// reworked after sealing. The Signatures map is outside it, which means
// signatures can be stripped but never forged or transplanted:
// stripping a required signature demotes Allow to Quarantine, never the
// reverse.
//
// # Ordering constraints
//
// Two orderings in the pipeline are load-bearing. The origin signature
// is checked before the replay cache is touched, so unauthenticated
// traffic cannot consume nonce slots. The replay check-and-store is
// atomic and happens before the quorum test, so an envelope observed
// under quorum cannot be replayed later with a fuller signature set —
// the nonce is already spent.
//
// # Failure shape
//
// Verification failures carry no error detail across the trust
// boundary. Every Deny and Quarantine result carries a [Noise] body
// derived from a keyed PRF over the failure stage and the signing base:
// deterministic for a given envelope and key (retries learn nothing
// new), unpredictable without the key, and identical in shape for every
// failure cause. The true stage and signer counts go to the attached
// [Recorder] for the audit trail, never to the caller.
//
// # Dependencies
//
// Sealing and verification depend on lib/keyset for key derivation,
// lib/codec for canonical CBOR, lib/quorum for policy, lib/replay for
// nonce dedupe, and lib/clock for testable time. The package has no
// transport opinions: envelopes are byte slices, JSON-encodable for
// interchange.
package envelope
