// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Warrant's standard CBOR encoding configuration.
//
// Warrant uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: envelope interchange, the audit
//     log (JSONL), policy files, and CLI output.
//   - CBOR for every byte sequence that is signed, encrypted, hashed,
//     or fed to a KDF: the envelope signing base, payload plaintext,
//     capsule metadata (AEAD associated data), and predicate
//     commitment encodings.
//
// The split exists because signatures and key derivation demand a
// canonical form. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, so "serialize then MAC" is well-defined and two sealers given
// the same envelope fields produce the same signature input.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
//   - `cbor` tag: the type is ONLY ever serialized as CBOR (signing
//     bases, commitment encodings). Integer keys via keyasint keep
//     signed forms compact.
//   - `json` tag: the type may serialize as BOTH JSON and CBOR.
//     fxamacker/cbor v2 falls back to `json` tags when `cbor` tags are
//     absent, so a single `json` tag controls field naming for both.
//     Examples: Envelope (JSON interchange, CBOR signing base derived
//     from a dedicated signed form), audit entries.
//
// Never use both `cbor` and `json` tags on the same field.
package codec
