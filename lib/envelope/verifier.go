// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"crypto/subtle"
	"encoding/hex"
	"slices"
	"time"

	"github.com/warrant-foundation/warrant/lib/clock"
	"github.com/warrant-foundation/warrant/lib/codec"
	"github.com/warrant-foundation/warrant/lib/keyset"
	"github.com/warrant-foundation/warrant/lib/quorum"
	"github.com/warrant-foundation/warrant/lib/replay"
)

// Default verification tolerances. Overridable per verifier; the
// replay cache's retention window must cover their sum.
const (
	// DefaultFreshnessWindow is how far in the past an envelope
	// timestamp may lie.
	DefaultFreshnessWindow = 5 * time.Minute

	// DefaultClockSkew is how far in the future an envelope timestamp
	// may lie, tolerating sealer clocks slightly ahead of ours.
	DefaultClockSkew = 30 * time.Second
)

// Record is the audit view of one verification decision. It carries
// everything the audit log needs and nothing a caller across the
// trust boundary ever sees.
type Record struct {
	Decision      Decision
	Stage         Stage
	Domain        Domain
	Action        string
	Origin        string
	NoncePrefix   string
	RequiredCount int
	ValidCount    int
}

// Recorder receives one Record per verification decision. Recording
// must never influence the decision: implementations swallow their own
// failures.
type Recorder interface {
	Record(rec Record)
}

// Verifier checks envelopes and opens the ones that pass. Safe for
// concurrent use; all shared mutable state lives in the replay cache.
type Verifier struct {
	keys     *keyset.KeySet
	policy   *quorum.Policy
	cache    replay.Cache
	clk      clock.Clock
	window   time.Duration
	skew     time.Duration
	recorder Recorder
}

// VerifierOption adjusts Verifier construction.
type VerifierOption func(*Verifier)

// WithFreshnessWindow overrides DefaultFreshnessWindow.
func WithFreshnessWindow(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.window = d }
}

// WithClockSkew overrides DefaultClockSkew.
func WithClockSkew(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.skew = d }
}

// WithRecorder attaches an audit recorder. Without one, decisions are
// returned but not recorded.
func WithRecorder(r Recorder) VerifierOption {
	return func(v *Verifier) { v.recorder = r }
}

// NewVerifier creates a Verifier. The KeySet is borrowed, not owned.
func NewVerifier(keys *keyset.KeySet, policy *quorum.Policy, cache replay.Cache, clk clock.Clock, options ...VerifierOption) *Verifier {
	verifier := &Verifier{
		keys:   keys,
		policy: policy,
		cache:  cache,
		clk:    clk,
		window: DefaultFreshnessWindow,
		skew:   DefaultClockSkew,
	}
	for _, option := range options {
		option(verifier)
	}
	return verifier
}

// VerifyAndOpen runs the verification pipeline in strict order:
//
//	1. structural completeness
//	2. freshness (timestamp within window and skew)
//	3. domain-tag registry check
//	4. quorum rule lookup for the header action
//	5. origin signature, constant time — before any stateful step,
//	   so a forged envelope never consumes a replay slot
//	6. atomic replay check-and-store
//	7. verification of every present signature
//	8. quorum subset test: Allow iff required ⊆ valid, else Quarantine
//	9. decrypt, decompress, and parse the payload
//
// Every failure returns a Decision with deterministic noise in the
// Result; Deny and Quarantine are wire-identical in shape. Exactly one
// replay-cache insertion happens per envelope that passes step 5,
// whatever the eventual decision — an under-quorum envelope cannot be
// replayed into a satisfied one later.
func (v *Verifier) VerifyAndOpen(env *Envelope) (Decision, *Result) {
	var base []byte
	if env != nil {
		// SigningBase fails only if codec rejects a concrete struct,
		// which would be a build-breaking regression; a nil base still
		// yields deterministic (stage-only) noise.
		base, _ = env.SigningBase()
	}

	// Step 1: structural completeness.
	if !structurallyComplete(env) {
		return v.reject(env, base, Deny, StageStructural, nil, nil)
	}

	// Step 2: freshness.
	now := v.clk.Now()
	sealedAt := time.UnixMilli(env.Timestamp)
	if sealedAt.Before(now.Add(-v.window)) || sealedAt.After(now.Add(v.skew)) {
		return v.reject(env, base, Deny, StageFreshness, nil, nil)
	}

	// Step 3: domain tag.
	if !env.Domain.Valid() {
		return v.reject(env, base, Deny, StageDomain, nil, nil)
	}

	// Step 4: quorum rule for the (still unencrypted) header action.
	required, actionKnown := v.policy.Required(env.Header.Action)

	// Step 5: origin signature. Constant-time, and strictly before the
	// replay cache: forged envelopes must not consume nonce slots.
	if !v.signatureValid(env.Origin, base, env.Signatures[env.Origin]) {
		return v.reject(env, base, Deny, StageOrigin, required, nil)
	}

	// Step 6: replay. The one stateful step. A cache error denies —
	// fresh-by-default would turn a cache outage into a replay hole.
	fresh, err := v.cache.CheckAndStore(env.Nonce, now)
	if err != nil || !fresh {
		return v.reject(env, base, Deny, StageReplay, required, nil)
	}

	// Step 7: every present signature, not only required ones. The
	// audit trail records the full valid set.
	valid := make([]string, 0, len(env.Signatures))
	for signer, mac := range env.Signatures {
		if v.signatureValid(signer, base, mac) {
			valid = append(valid, signer)
		}
	}
	slices.Sort(valid)

	// Step 8: quorum subset test. An action no rule provisions is
	// unsatisfiable: authentic, never authorized.
	if !actionKnown || !coversQuorum(required, valid) {
		return v.reject(env, base, Quarantine, StageQuorum, required, valid)
	}

	// Step 9: open. Failures past this point mean the payload cannot
	// be what the quorum signed off on.
	headerBytes, err := codec.Marshal(env.Header)
	if err != nil {
		return v.reject(env, base, Deny, StagePayload, required, valid)
	}
	stream, err := v.keys.Keystream(env.Nonce, headerBytes, len(env.Payload))
	if err != nil {
		return v.reject(env, base, Deny, StagePayload, required, valid)
	}
	encoded := make([]byte, len(env.Payload))
	xorBytes(encoded, env.Payload, stream)

	plaintext, err := decompressPayload(encoded, env.Encoding, env.PayloadSize)
	if err != nil {
		return v.reject(env, base, Deny, StagePayload, required, valid)
	}
	if err := codec.Wellformed(plaintext); err != nil {
		return v.reject(env, base, Deny, StagePayload, required, valid)
	}

	result := &Result{
		Decision:        Allow,
		Stage:           StageOK,
		Payload:         plaintext,
		RequiredSigners: required,
		ValidSigners:    valid,
	}
	v.record(env, Allow, StageOK, required, valid)
	return Allow, result
}

// structurallyComplete runs the step-1 completeness checks. Domain
// validity is deliberately excluded — it has its own stage.
func structurallyComplete(env *Envelope) bool {
	if env == nil {
		return false
	}
	if env.Version != EnvelopeVersion {
		return false
	}
	if len(env.Nonce) != NonceSize {
		return false
	}
	if env.Origin == "" || env.Header.Action == "" {
		return false
	}
	if env.Timestamp <= 0 {
		return false
	}
	if len(env.Payload) == 0 {
		return false
	}
	if env.PayloadSize <= 0 || env.PayloadSize > MaxPayloadSize {
		return false
	}
	if env.Encoding > EncodingZstd {
		return false
	}
	if env.Encoding == EncodingNone && env.PayloadSize != len(env.Payload) {
		return false
	}
	if len(env.Signatures) == 0 {
		return false
	}
	if _, ok := env.Signatures[env.Origin]; !ok {
		return false
	}
	for signer, mac := range env.Signatures {
		if len(mac) != keyset.MACSize {
			return false
		}
		if _, ok := env.KeyIDs[signer]; !ok {
			return false
		}
	}
	return true
}

// signatureValid recomputes the expected MAC and compares in constant
// time. A missing or short MAC compares false without shortcutting on
// content.
func (v *Verifier) signatureValid(signer string, base, mac []byte) bool {
	if len(mac) != keyset.MACSize {
		return false
	}
	expected, err := v.keys.Sign(signer, base)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(expected, mac) == 1
}

// coversQuorum reports whether every required signer appears in the
// valid set.
func coversQuorum(required, valid []string) bool {
	validSet := make(map[string]struct{}, len(valid))
	for _, signer := range valid {
		validSet[signer] = struct{}{}
	}
	for _, signer := range required {
		if _, ok := validSet[signer]; !ok {
			return false
		}
	}
	return true
}

// reject assembles the failure Result, records it, and returns it.
func (v *Verifier) reject(env *Envelope, base []byte, decision Decision, stage Stage, required, valid []string) (Decision, *Result) {
	result := &Result{
		Decision:        decision,
		Stage:           stage,
		Noise:           synthesizeNoise(v.keys, stage, base),
		RequiredSigners: required,
		ValidSigners:    valid,
	}
	v.record(env, decision, stage, required, valid)
	return decision, result
}

// record forwards the decision to the attached recorder, if any.
func (v *Verifier) record(env *Envelope, decision Decision, stage Stage, required, valid []string) {
	if v.recorder == nil {
		return
	}
	rec := Record{
		Decision:      decision,
		Stage:         stage,
		RequiredCount: len(required),
		ValidCount:    len(valid),
	}
	if env != nil {
		rec.Domain = env.Domain
		rec.Action = env.Header.Action
		rec.Origin = env.Origin
		if len(env.Nonce) >= 4 {
			rec.NoncePrefix = hex.EncodeToString(env.Nonce[:4])
		}
	}
	v.recorder.Record(rec)
}
