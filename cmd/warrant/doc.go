// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Warrant is the operator CLI for the sealed-authorization protocol.
// It seals and opens authorization envelopes, manages the sealed
// master keyring, seals and attempts predicate-gated capsules,
// evaluates actions against operating boundaries, validates policy
// files, and verifies, queries, and browses the audit log.
// Subcommands: keyring, seal, open, capsule, boundary, policy, audit.
package main
