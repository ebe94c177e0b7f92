// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package keyset

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"

	"github.com/warrant-foundation/warrant/lib/secret"
)

// KeySize is the size in bytes of every symmetric key in the system:
// the master key, derived signer keys, stream keys, and the noise key.
const KeySize = 32

// MACSize is the size in bytes of a keyed MAC (BLAKE3 keyed mode
// default output). Envelope signatures are exactly this long.
const MACSize = 32

// FingerprintSize is the number of raw bytes in a key fingerprint
// before hex encoding. Fingerprints identify which key generation a
// signature was made under without revealing anything about the key.
const FingerprintSize = 8

// HKDF info labels. These are the "info" parameter to HKDF-SHA256,
// providing domain separation between derivation paths. Changing any
// of these invalidates every envelope sealed under the old label.
var (
	hkdfInfoSigner = []byte("warrant.envelope.signer.v1")
	hkdfInfoStream = []byte("warrant.envelope.stream.v1")
	hkdfInfoNoise  = []byte("warrant.envelope.noise.v1")
)

// fingerprintDomain is the fixed input to the keyed fingerprint hash.
// Hashing a constant under the key yields a stable public identifier
// that reveals nothing about the key itself.
var fingerprintDomain = []byte("warrant.keyid.v1")

// KeySet holds the deployment master key in guarded memory and derives
// every subordinate key on demand. Sealer and verifier sides of the
// protocol each hold a KeySet over the same master key.
//
// Close zeroes and releases the master key. After Close, all methods
// panic (via secret.Buffer's closed check).
type KeySet struct {
	masterKey *secret.Buffer
}

// New creates a KeySet from a master key. The buffer is owned by the
// KeySet and closed when Close is called; the caller must not use it
// afterward. Returns an error unless the key is exactly KeySize bytes.
func New(masterKey *secret.Buffer) (*KeySet, error) {
	if masterKey.Len() != KeySize {
		return nil, fmt.Errorf("keyset: master key must be %d bytes, got %d", KeySize, masterKey.Len())
	}
	return &KeySet{masterKey: masterKey}, nil
}

// Generate creates a KeySet with a fresh random master key. Mostly
// useful in tests; deployments seal their master key with `warrant
// keyring seal` and load it through New.
func Generate() (*KeySet, error) {
	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("keyset: reading random master key: %w", err)
	}
	buffer, err := secret.NewFromBytes(raw)
	if err != nil {
		return nil, err
	}
	return &KeySet{masterKey: buffer}, nil
}

// Close zeroes and releases the master key. Idempotent.
func (k *KeySet) Close() error {
	return k.masterKey.Close()
}

// SignerKey derives the MAC key for a signer identity. Distinct
// identities yield unrelated keys. The returned buffer must be closed
// by the caller.
func (k *KeySet) SignerKey(identity string) (*secret.Buffer, error) {
	info := make([]byte, 0, len(hkdfInfoSigner)+len(identity))
	info = append(info, hkdfInfoSigner...)
	info = append(info, identity...)
	return Derive(k.masterKey.Bytes(), nil, info)
}

// Sign computes the keyed MAC for a signer identity over message.
// The MAC is BLAKE3 keyed mode under the identity's derived signer
// key, MACSize bytes. Deterministic: same identity and message always
// produce the same MAC.
func (k *KeySet) Sign(identity string, message []byte) ([]byte, error) {
	signerKey, err := k.SignerKey(identity)
	if err != nil {
		return nil, fmt.Errorf("keyset: deriving signer key for %q: %w", identity, err)
	}
	defer signerKey.Close()

	hasher := newKeyed(signerKey.Bytes())
	hasher.Write(message)
	return hasher.Sum(nil), nil
}

// Fingerprint returns the hex fingerprint of a signer identity's
// current key: the first FingerprintSize bytes of a keyed hash over a
// fixed domain constant. Safe to publish; changes iff the master key
// or the derivation label changes.
func (k *KeySet) Fingerprint(identity string) (string, error) {
	signerKey, err := k.SignerKey(identity)
	if err != nil {
		return "", fmt.Errorf("keyset: deriving signer key for %q: %w", identity, err)
	}
	defer signerKey.Close()

	hasher := newKeyed(signerKey.Bytes())
	hasher.Write(fingerprintDomain)
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:FingerprintSize]), nil
}

// Keystream returns length bytes of the payload cipher keystream for
// one message. The stream key is derived from the master key, the
// envelope nonce, and the canonical header bytes, so every message
// encrypts under a unique keystream and a payload moved between
// envelopes decrypts to garbage. The keystream is the BLAKE3 XOF
// under the per-message key.
func (k *KeySet) Keystream(nonce []byte, headerBytes []byte, length int) ([]byte, error) {
	info := make([]byte, 0, len(hkdfInfoStream)+len(nonce)+len(headerBytes))
	info = append(info, hkdfInfoStream...)
	info = append(info, nonce...)
	info = append(info, headerBytes...)

	streamKey, err := Derive(k.masterKey.Bytes(), nil, info)
	if err != nil {
		return nil, fmt.Errorf("keyset: deriving stream key: %w", err)
	}
	defer streamKey.Close()

	return readXOF(streamKey.Bytes(), nil, length), nil
}

// Noise returns length bytes of deterministic failure noise for the
// given context. The noise is a keyed PRF (BLAKE3 XOF under the noise
// key) over the context bytes: identical failures synthesize identical
// noise, different contexts produce unrelated noise, and no randomness
// source is consumed.
func (k *KeySet) Noise(context []byte, length int) ([]byte, error) {
	noiseKey, err := Derive(k.masterKey.Bytes(), nil, hkdfInfoNoise)
	if err != nil {
		return nil, fmt.Errorf("keyset: deriving noise key: %w", err)
	}
	defer noiseKey.Close()

	return readXOF(noiseKey.Bytes(), context, length), nil
}

// Derive is the shared HKDF-SHA256 derivation: a KeySize-byte key from
// inputKeyMaterial under the given salt and info. A nil salt selects
// HKDF's extract phase with a zero key, appropriate when the IKM is
// already uniformly random (RFC 5869). The capsule's predicate
// derivations pass an explicit salt; everything keyed off the master
// key passes nil.
func Derive(inputKeyMaterial, salt, info []byte) (*secret.Buffer, error) {
	reader := hkdf.New(sha256.New, inputKeyMaterial, salt, info)
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	// NewFromBytes copies into mmap and zeros the heap slice.
	return secret.NewFromBytes(derived)
}

// newKeyed constructs a BLAKE3 keyed hasher. The key is always KeySize
// bytes here (HKDF output), so construction cannot fail.
func newKeyed(key []byte) *blake3.Hasher {
	hasher, err := blake3.NewKeyed(key)
	if err != nil {
		panic("keyset: BLAKE3 keyed hash initialization failed (key must be 32 bytes): " + err.Error())
	}
	return hasher
}

// readXOF returns length bytes of the BLAKE3 extendable output under
// key after absorbing input. The Digest reader never fails.
func readXOF(key []byte, input []byte, length int) []byte {
	hasher := newKeyed(key)
	if len(input) > 0 {
		hasher.Write(input)
	}
	out := make([]byte, length)
	digest := hasher.Digest()
	if _, err := io.ReadFull(digest, out); err != nil {
		panic("keyset: BLAKE3 XOF read failed: " + err.Error())
	}
	return out
}
