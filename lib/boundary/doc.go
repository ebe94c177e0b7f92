// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package boundary scores actions against declared operating
// envelopes: resource floors, ceilings, categorical allowlists, and a
// risk-tier ceiling, reduced to a scarcity score and an admission
// cost.
//
// # Scoring
//
// Each resource floor contributes a relative deficit
// max(0, (floor−observed)/floor), clamped to 1; a resource missing
// from the observed state is fully deficient, because missing
// telemetry must never read as abundance. The scarcity score is the
// mean deficit across all floors, so it stays in [0,1], and the
// admission cost is base^(alpha·scarcity²) — flat near zero scarcity
// and steep as any floor approaches, which is what makes routine
// actions cheap and desperate ones expensive.
//
// # Violations versus scarcity
//
// Ceiling overshoot and categorical misses (phase, agent, capability,
// target, tier) produce named violations and do not move the scarcity
// score. An action is inside the boundary iff it has no violations
// and its scarcity is at most the envelope's limit; a scarcity breach
// alone flips the result without adding to the violation list. What
// to do with an out-of-boundary action — AUTO_ALLOW, QUARANTINE, or
// DENY — is declared in the envelope, not computed here, and the two
// escalating behaviors refuse to construct without a recovery record.
//
// Evaluation is pure: identical inputs always yield an identical
// Result, violations included, so evaluators are safe for concurrent
// use and their outputs safe to replay in audits.
package boundary
