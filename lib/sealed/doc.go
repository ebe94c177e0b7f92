// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for warrant master keys at
// rest. It wraps filippo.io/age for the specific operations the
// keyring needs: generate x25519 keypairs, seal key material to
// multiple recipients, and unseal with a private key.
//
// Ciphertext is base64-encoded for storage as a single text field in
// keyring files. Callers pass key material in a [secret.Buffer] to
// [Encrypt] and receive a base64 string; [Decrypt] accepts a base64
// string and returns the material. Private keys and unsealed material
// are held in [secret.Buffer] values backed by mmap memory outside
// the Go heap (locked against swap, excluded from core dumps, zeroed
// on Close).
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair in a secret.Buffer
//   - [Encrypt] -- seal key material to age public key recipients
//   - [Decrypt] -- unseal with a secret.Buffer private key
//   - [RecipientStanzas] -- count recipients without decrypting
//   - [ParsePublicKey] / [ParsePrivateKey] -- key validation
//
// Used by `warrant keyring` to generate, seal, and inspect master-key
// material. Master keys are typically sealed to the verifier host's
// key plus one or more operator escrow keys, so either side can
// recover the material.
//
// Depends on lib/secret for secure memory allocation.
package sealed
