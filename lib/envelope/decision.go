// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

// Decision is the outcome of envelope verification.
type Decision int

const (
	// Deny means the envelope failed verification outright: malformed,
	// stale, replayed, forged, or undecryptable.
	Deny Decision = iota

	// Quarantine means the envelope is authentic but under-authorized:
	// the signature set does not cover the required quorum. On the
	// wire, Quarantine is byte-identical to Deny; the distinction
	// exists only in the audit log.
	Quarantine

	// Allow means the envelope passed every check and the payload was
	// decrypted.
	Allow
)

// String returns "deny", "quarantine", or "allow".
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Quarantine:
		return "quarantine"
	default:
		return "deny"
	}
}

// Stage identifies how far verification progressed before it stopped.
// Stages are internal: they appear in the audit log and nowhere else.
// In particular, a replayed envelope and a forged one are externally
// indistinguishable — only their stages differ.
type Stage int

const (
	// StageStructural: the envelope is incomplete or malformed.
	StageStructural Stage = iota

	// StageFreshness: the timestamp is outside the freshness window.
	StageFreshness

	// StageDomain: the domain tag is not in the registry.
	StageDomain

	// StageOrigin: the origin signature did not verify.
	StageOrigin

	// StageReplay: the nonce was already seen (or the replay cache
	// could not answer).
	StageReplay

	// StageQuorum: signatures verified, but the required signer set is
	// not covered (or no quorum rule provisions the action).
	StageQuorum

	// StagePayload: decryption, decompression, or payload parsing
	// failed after an otherwise satisfied quorum.
	StagePayload

	// StageOK: verification completed and the payload was opened.
	StageOK
)

// String returns the audit-log name of the stage.
func (s Stage) String() string {
	switch s {
	case StageStructural:
		return "structural"
	case StageFreshness:
		return "freshness"
	case StageDomain:
		return "domain"
	case StageOrigin:
		return "origin-signature"
	case StageReplay:
		return "replay"
	case StageQuorum:
		return "quorum"
	case StagePayload:
		return "payload"
	case StageOK:
		return "ok"
	default:
		return "unknown"
	}
}
