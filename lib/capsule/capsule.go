// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package capsule

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/warrant-foundation/warrant/lib/codec"
)

// CapsuleVersion is the current capsule format version. Adding a
// predicate category or changing any canonical encoding bumps it.
const CapsuleVersion = 1

// saltSize is the length of the random salt feeding the final key
// derivation.
const saltSize = 32

// Errors. ErrMismatch is the only failure a claimant ever sees for a
// wrong claim — every one of the 2^4−1 incorrect predicate
// combinations, and every tampered capsule field, reports it
// identically.
var (
	ErrMismatch       = errors.New("capsule: predicate mismatch")
	ErrEmptySecret    = errors.New("capsule: empty secret")
	ErrDuplicateShare = errors.New("capsule: duplicate share id")
)

// Meta is the public capsule metadata. It rides as AEAD associated
// data: visible to anyone holding the capsule, authenticated by the
// capsule key, and never containing committed predicate values.
type Meta struct {
	// Label is a free-form capsule name.
	Label string `json:"label,omitempty"`

	// CreatedAt is the seal time in Unix milliseconds, if the caller
	// chooses to publish it.
	CreatedAt int64 `json:"created_at,omitempty"`

	// Attributes carries optional public context strings.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Capsule is a sealed secret gated by the AND of four predicate
// commitments. Attempts are unlimited, pure, and side-effect-free: the
// only way to open a capsule is to present every committed value
// exactly.
type Capsule struct {
	// Version is the capsule format version (CapsuleVersion).
	Version int `json:"version"`

	// Salt feeds the final key derivation. Public and random per
	// capsule: two capsules over identical predicates still have
	// unrelated keys.
	Salt []byte `json:"salt"`

	// Nonce is the AEAD nonce.
	Nonce []byte `json:"nonce"`

	// Meta is the public metadata, authenticated as associated data.
	Meta Meta `json:"meta"`

	// Ciphertext is the sealed secret.
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts secret under the AND of the committed predicates.
// The capsule key is derived from per-category sub-keys (identity,
// point, path, quorum) concatenated in fixed order and salted; the
// cipher is XChaCha20-Poly1305 with the canonical Meta encoding as
// associated data.
//
// Errors are caller bugs — empty secret, NaN coordinate, duplicate
// share id — never protocol outcomes.
func Seal(secret []byte, committed Predicates, meta Meta) (*Capsule, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	seen := make(map[string]struct{}, len(committed.Shares))
	for _, share := range committed.Shares {
		if _, dup := seen[share.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateShare, share.ID)
		}
		seen[share.ID] = struct{}{}
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("capsule: generating salt: %w", err)
	}

	key, err := deriveKey(committed, salt, true)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("capsule: constructing cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("capsule: generating nonce: %w", err)
	}
	associatedData, err := codec.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("capsule: encoding meta: %w", err)
	}

	return &Capsule{
		Version:    CapsuleVersion,
		Salt:       salt,
		Nonce:      nonce,
		Meta:       meta,
		Ciphertext: aead.Seal(nil, nonce, secret, associatedData),
	}, nil
}

// Attempt tries to open the capsule with the claimed predicates.
// Returns the secret when every claimed value equals its commitment;
// otherwise ErrMismatch, with no indication of which predicate — or
// how many — differed. A claim never produces wrong plaintext: an
// incorrect key fails AEAD authentication, not decryption.
//
// Attempt is pure: no state changes, no attempt limit, safe to call
// concurrently.
func (c *Capsule) Attempt(claimed Predicates) ([]byte, error) {
	// Version and nonce length are public structure, not predicates:
	// a capsule this code cannot process is reported as such.
	if c.Version != CapsuleVersion {
		return nil, fmt.Errorf("capsule: unsupported version %d", c.Version)
	}
	if len(c.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("capsule: malformed nonce (%d bytes)", len(c.Nonce))
	}

	key, err := deriveKey(claimed, c.Salt, false)
	if err != nil {
		return nil, ErrMismatch
	}
	defer key.Close()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, ErrMismatch
	}
	associatedData, err := codec.Marshal(c.Meta)
	if err != nil {
		return nil, ErrMismatch
	}

	secret, err := aead.Open(nil, c.Nonce, c.Ciphertext, associatedData)
	if err != nil {
		return nil, ErrMismatch
	}
	return secret, nil
}
