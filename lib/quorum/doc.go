// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package quorum maps action categories to the signer sets required to
// authorize them.
//
// A [Policy] is a read-only rule table built once at startup from the
// policy file and shared by every verifier. Rules are evaluated in
// declaration order, first match wins; an action may be named exactly
// or matched by a trailing-* pattern ("config/*"). The required signer
// set is ordered as declared — display surfaces keep that order — but
// quorum satisfaction is a set property: the verifier checks that
// every required signer produced a valid signature, regardless of
// signature order in the envelope.
//
// Every signer a rule names must exist in the signer registry.
// Violations are construction errors, so a typo in a policy file stops
// startup instead of silently weakening a quorum.
package quorum
