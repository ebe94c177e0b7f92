// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/warrant-foundation/warrant/lib/clock"
	"github.com/warrant-foundation/warrant/lib/codec"
	"github.com/warrant-foundation/warrant/lib/keyset"
)

// defaultCompressThreshold is the payload size at which sealing starts
// probing for compression. Below it, the probe costs more than the
// bytes it saves.
const defaultCompressThreshold = 512

// Sealer creates envelopes. One Sealer per origin identity; safe for
// concurrent use.
type Sealer struct {
	keys              *keyset.KeySet
	origin            string
	clk               clock.Clock
	compressThreshold int
}

// SealerOption adjusts Sealer construction.
type SealerOption func(*Sealer)

// WithCompressionThreshold sets the payload size at which compression
// is attempted. A non-positive threshold disables compression
// entirely.
func WithCompressionThreshold(bytes int) SealerOption {
	return func(s *Sealer) { s.compressThreshold = bytes }
}

// NewSealer creates a Sealer for the given origin identity. The
// KeySet is borrowed, not owned: the caller closes it after the
// Sealer is no longer in use.
func NewSealer(keys *keyset.KeySet, origin string, clk clock.Clock, options ...SealerOption) (*Sealer, error) {
	if origin == "" {
		return nil, ErrEmptyOrigin
	}
	sealer := &Sealer{
		keys:              keys,
		origin:            origin,
		clk:               clk,
		compressThreshold: defaultCompressThreshold,
	}
	for _, option := range options {
		option(sealer)
	}
	return sealer, nil
}

// Seal builds a complete envelope: canonical payload serialization,
// compression probe, per-message keystream encryption, and one keyed
// MAC per signer. The signer list must include every identity whose
// signature the envelope should carry — the origin is added
// implicitly if absent. Pure computation plus one read of the random
// source for the nonce; no I/O.
//
// Errors are caller bugs (unknown domain, empty action, no signers,
// duplicate signer), never protocol outcomes.
func (s *Sealer) Seal(domain Domain, header Header, payload any, signers []string) (*Envelope, error) {
	if !domain.Valid() {
		return nil, ErrUnknownDomain
	}
	if header.Action == "" {
		return nil, ErrEmptyAction
	}
	if len(signers) == 0 {
		return nil, ErrNoSigners
	}

	signerSet := make(map[string]struct{}, len(signers)+1)
	for _, signer := range signers {
		if signer == "" {
			return nil, fmt.Errorf("envelope: blank signer identity")
		}
		if _, dup := signerSet[signer]; dup {
			return nil, fmt.Errorf("envelope: duplicate signer %q", signer)
		}
		signerSet[signer] = struct{}{}
	}
	signerSet[s.origin] = struct{}{}

	plaintext, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("envelope: encoding payload: %w", err)
	}
	if len(plaintext) > MaxPayloadSize {
		return nil, fmt.Errorf("envelope: payload is %d bytes, limit is %d", len(plaintext), MaxPayloadSize)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("envelope: generating nonce: %w", err)
	}

	encoded := plaintext
	encoding := EncodingNone
	if s.compressThreshold > 0 && len(plaintext) >= s.compressThreshold {
		encoded, encoding = compressPayload(plaintext)
	}

	headerBytes, err := codec.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("envelope: encoding header: %w", err)
	}
	stream, err := s.keys.Keystream(nonce, headerBytes, len(encoded))
	if err != nil {
		return nil, fmt.Errorf("envelope: deriving keystream: %w", err)
	}
	ciphertext := make([]byte, len(encoded))
	xorBytes(ciphertext, encoded, stream)

	keyIDs := make(map[string]string, len(signerSet))
	for signer := range signerSet {
		fingerprint, err := s.keys.Fingerprint(signer)
		if err != nil {
			return nil, fmt.Errorf("envelope: fingerprinting %q: %w", signer, err)
		}
		keyIDs[signer] = fingerprint
	}

	env := &Envelope{
		Version:     EnvelopeVersion,
		Domain:      domain,
		Origin:      s.origin,
		Timestamp:   s.clk.Now().UnixMilli(),
		Nonce:       nonce,
		Header:      header,
		Encoding:    encoding,
		PayloadSize: len(plaintext),
		Payload:     ciphertext,
		KeyIDs:      keyIDs,
	}

	base, err := env.SigningBase()
	if err != nil {
		return nil, fmt.Errorf("envelope: encoding signing base: %w", err)
	}

	env.Signatures = make(map[string][]byte, len(signerSet))
	for signer := range signerSet {
		mac, err := s.keys.Sign(signer, base)
		if err != nil {
			return nil, fmt.Errorf("envelope: signing as %q: %w", signer, err)
		}
		env.Signatures[signer] = mac
	}

	return env, nil
}

// xorBytes writes src XOR stream into dst. All three must be the same
// length.
func xorBytes(dst, src, stream []byte) {
	for index := range src {
		dst[index] = src[index] ^ stream[index]
	}
}
