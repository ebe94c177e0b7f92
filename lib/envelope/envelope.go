// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"errors"

	"github.com/warrant-foundation/warrant/lib/codec"
)

// EnvelopeVersion is the current wire format version.
const EnvelopeVersion = 1

// NonceSize is the size in bytes of the envelope nonce. Random nonces
// of this size make collision within any realistic replay window a
// non-event, so the nonce doubles as the replay-dedupe key.
const NonceSize = 24

// MaxPayloadSize bounds the declared pre-compression payload size.
// The size field is authenticated, but the bound keeps a misbehaving
// sealer from turning the verifier into a decompression amplifier.
const MaxPayloadSize = 64 << 20

// Errors returned by Seal. Verification never returns errors — it
// returns decisions.
var (
	ErrUnknownDomain = errors.New("envelope: unknown domain tag")
	ErrNoSigners     = errors.New("envelope: no signers specified")
	ErrEmptyAction   = errors.New("envelope: header action is empty")
	ErrEmptyOrigin   = errors.New("envelope: origin is empty")
)

// Header is the authenticated-but-unencrypted part of an envelope.
// The action must be visible before decryption so quorum policy can be
// enforced on envelopes the verifier will never open.
type Header struct {
	// Action is the action category the payload requests. Quorum rules
	// match against this value.
	Action string `json:"action"`

	// Attributes carries optional context strings (target, reason,
	// ticket reference). Authenticated like every header field; never
	// secret.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Envelope is a sealed authorization message. Immutable once sealed:
// created by a Sealer, consumed at most once successfully by a
// Verifier, never mutated in between. JSON-serializable for
// interchange; every signature covers the canonical CBOR encoding of
// all fields except Signatures itself.
type Envelope struct {
	// Version is the wire format version (EnvelopeVersion).
	Version int `json:"version"`

	// Domain is the registry tag naming the protocol surface.
	Domain Domain `json:"domain"`

	// Origin is the signer identity that sealed the envelope. The
	// origin's signature is always required and is checked before any
	// stateful step.
	Origin string `json:"origin"`

	// Timestamp is the seal time in Unix milliseconds, read from the
	// sealer's injected clock.
	Timestamp int64 `json:"timestamp"`

	// Nonce is NonceSize random bytes, unique per envelope. The replay
	// cache is keyed on it.
	Nonce []byte `json:"nonce"`

	// Header is the authenticated plaintext context.
	Header Header `json:"header"`

	// Encoding names the payload compression applied before
	// encryption.
	Encoding Encoding `json:"encoding"`

	// PayloadSize is the canonical payload length in bytes before
	// compression and encryption. Decompression verifies it exactly.
	PayloadSize int `json:"payload_size"`

	// Payload is the encrypted (and possibly compressed) canonical
	// payload bytes.
	Payload []byte `json:"payload"`

	// KeyIDs maps each signer identity to the fingerprint of the key
	// generation its signature was made under. Diagnostic: lets an
	// operator distinguish "wrong master key" from "forged" in the
	// audit trail without weakening either to a caller.
	KeyIDs map[string]string `json:"key_ids"`

	// Signatures maps signer identities to keyed MACs over the signing
	// base (every field above).
	Signatures map[string][]byte `json:"signatures"`
}

// signedForm is the CBOR signing base: every envelope field except
// Signatures, with integer keys for compactness. Canonical encoding
// makes the base bytes — and therefore every MAC — deterministic.
type signedForm struct {
	Version     int               `cbor:"1,keyasint"`
	Domain      Domain            `cbor:"2,keyasint"`
	Origin      string            `cbor:"3,keyasint"`
	Timestamp   int64             `cbor:"4,keyasint"`
	Nonce       []byte            `cbor:"5,keyasint"`
	Header      Header            `cbor:"6,keyasint"`
	Encoding    Encoding          `cbor:"7,keyasint"`
	PayloadSize int               `cbor:"8,keyasint"`
	Payload     []byte            `cbor:"9,keyasint"`
	KeyIDs      map[string]string `cbor:"10,keyasint"`
}

// SigningBase returns the canonical bytes each signature covers.
// Tampering with any field — including adding or removing KeyIDs
// entries — changes these bytes and breaks every signature.
func (e *Envelope) SigningBase() ([]byte, error) {
	return codec.Marshal(signedForm{
		Version:     e.Version,
		Domain:      e.Domain,
		Origin:      e.Origin,
		Timestamp:   e.Timestamp,
		Nonce:       e.Nonce,
		Header:      e.Header,
		Encoding:    e.Encoding,
		PayloadSize: e.PayloadSize,
		Payload:     e.Payload,
		KeyIDs:      e.KeyIDs,
	})
}

// Result is the outcome detail accompanying a Decision.
type Result struct {
	// Decision mirrors the returned decision.
	Decision Decision

	// Stage is the internal stage the verification ended at. Audit
	// only — never expose to callers across a trust boundary.
	Stage Stage

	// Payload is the decrypted canonical payload. Set only on Allow.
	Payload []byte

	// Noise is the deterministic failure response. Set on Deny and
	// Quarantine; wire-identical in shape for both.
	Noise *Noise

	// RequiredSigners is the quorum the policy demanded for the
	// envelope's action, in rule order. Nil when no rule matched.
	RequiredSigners []string

	// ValidSigners lists the signers whose MACs verified, sorted.
	// Populated once verification reaches the signature stage.
	ValidSigners []string
}
