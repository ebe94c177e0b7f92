// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package capsule implements predicate-gated secrets: a secret sealed
// under the AND of four independent predicate commitments, openable
// only by presenting every committed value exactly.
//
// The four categories are a claimant identity, a geometric point, an
// ordered path history, and a quorum share set. Each committed value
// is canonically encoded and derived into a 32-byte sub-key under its
// own versioned label; the sub-keys concatenate in fixed category
// order into a salted final derivation, and the resulting key drives
// XChaCha20-Poly1305. Knowledge of three predicates gives no purchase
// on the fourth: a single wrong value produces a key with no bit-level
// relation to the right one.
//
// # Failure semantics
//
// Of the 2^4 correctness combinations exactly one opens the capsule.
// The other fifteen — and any tampering with the ciphertext, salt,
// nonce, or public metadata — fail with the single sentinel
// [ErrMismatch]. There is no wrong-plaintext outcome and no signal
// distinguishing which predicate missed. Degenerate claims degrade the
// same way: a NaN coordinate folds to a fixed bit pattern and too few
// quorum shares fold to a different commitment, so both produce a
// deterministic wrong key rather than a distinguishable error.
//
// Unlike envelopes, capsules are not replay-protected and attempts are
// unlimited: the gate is predicate knowledge, not one-time use.
// Attempts are pure and safe to run fully in parallel; rate limiting,
// if wanted, lives outside this package.
//
// # Dependencies
//
// Key derivation shares lib/keyset's HKDF layering; canonical
// encodings use lib/codec; the AEAD is x/crypto's XChaCha20-Poly1305.
package capsule
