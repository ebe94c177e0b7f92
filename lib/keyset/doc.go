// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyset holds the deployment master key and owns every
// derivation from it.
//
// All symmetric keys in the sealed-authorization system descend from
// one 32-byte master key via HKDF-SHA256 with versioned info labels:
//
//	master
//	├── signer key      "warrant.envelope.signer.v1" + identity
//	├── stream key      "warrant.envelope.stream.v1" + nonce + header
//	└── noise key       "warrant.envelope.noise.v1"
//
// Signer keys back the keyed MACs (BLAKE3 keyed mode) that form
// envelope signatures. Stream keys are unique per message and feed the
// BLAKE3 XOF that encrypts payloads. The noise key drives the
// deterministic failure PRF: every rejected envelope yields noise that
// is a pure function of the master key and the failure context, so
// repeated failures are byte-identical and reveal nothing.
//
// Changing any info label is a key rotation: every envelope sealed
// under the previous label fails verification by construction. Bump
// the .vN suffix rather than editing a label in place.
//
// The master key lives in a secret.Buffer (mlocked, out of the GC
// heap, zeroed on close). KeySet does not cache derived keys — each
// call performs a fresh HKDF derivation, which costs about a
// microsecond and keeps derived material short-lived.
package keyset
