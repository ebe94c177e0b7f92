// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"

	"github.com/warrant-foundation/warrant/lib/secret"
)

// ageHeaderVersion is the first line of every age-format file. Used to
// recognize sealed material without attempting decryption.
const ageHeaderVersion = "age-encryption.org/v1"

// Keypair holds an age x25519 keypair. The private key is stored in a
// secret.Buffer (mmap-backed, locked against swap, excluded from core
// dumps). The public key is a plain string (safe to publish).
//
// The caller must call Close when the keypair is no longer needed.
type Keypair struct {
	// PrivateKey is the secret key in AGE-SECRET-KEY-1... format,
	// stored in mmap memory outside the Go heap. Must never be logged,
	// written to disk in plaintext, or passed in CLI arguments.
	PrivateKey *secret.Buffer

	// PublicKey is the corresponding public key in age1... format.
	// Safe to publish alongside the sealed material it can open.
	PublicKey string
}

// Close releases the private key memory (zeros, unlocks, unmaps).
// Idempotent — safe to call multiple times.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair generates a new age x25519 keypair. The private key
// is returned in a secret.Buffer.
//
// The caller must call Close on the returned Keypair when done.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}

	// Move the private key string into mmap-backed memory immediately.
	privateKeyBytes := []byte(identity.String())
	privateKey, err := secret.NewFromBytes(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	// privateKeyBytes is zeroed by NewFromBytes. The string returned
	// by identity.String() is on the heap and will be GC'd —
	// unavoidable with age's API. The mmap buffer is the durable copy.

	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt seals key material to one or more recipients specified by
// their age public key strings (age1... format). Returns the
// ciphertext as a standard base64-encoded string.
//
// At least one recipient is required. For warrant master keys the
// recipients are typically the verifier host's key plus one or more
// operator escrow keys, so either side can recover the material.
//
// The material buffer is borrowed and NOT closed by this function.
func Encrypt(material *secret.Buffer, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertextBuffer bytes.Buffer
	writer, err := age.Encrypt(&ciphertextBuffer, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(material.Bytes()); err != nil {
		return "", fmt.Errorf("writing key material to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertextBuffer.Bytes()), nil
}

// Decrypt unseals a base64-encoded ciphertext string using the given
// private key. Returns the key material in a secret.Buffer
// (mmap-backed, zeroed on close).
//
// The private key is borrowed (read via .String() to parse the age
// identity) and is NOT closed by this function.
//
// The caller must call Close on the returned buffer when the material
// is no longer needed.
func Decrypt(ciphertext string, privateKey *secret.Buffer) (*secret.Buffer, error) {
	// The buffer crosses to a string at the API boundary —
	// age.ParseX25519Identity requires one. The heap copy is brief.
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	rawCiphertext, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(rawCiphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("unsealing: %w", err)
	}

	material, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading unsealed key material: %w", err)
	}

	// Key material is never legitimately empty (the master key is 32
	// bytes); an empty payload means the wrong thing was sealed.
	if len(material) == 0 {
		return nil, fmt.Errorf("sealed key material is empty")
	}

	// Move the unsealed material into mmap-backed memory immediately.
	// NewFromBytes zeros the heap copy.
	buffer, err := secret.NewFromBytes(material)
	if err != nil {
		for index := range material {
			material[index] = 0
		}
		return nil, fmt.Errorf("protecting unsealed key material: %w", err)
	}
	return buffer, nil
}

// RecipientStanzas reports how many recipient stanzas a sealed payload
// carries, without attempting decryption. This is what lets `warrant
// keyring inspect` show how many keys can open the material when no
// identity is at hand.
//
// The count comes from the age textual header: one "-> " stanza per
// recipient, terminated by the "---" MAC line.
func RecipientStanzas(ciphertext string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return 0, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	// Stanza argument lines start "-> " and body lines are base64, so
	// the first newline-"---" sequence is always the header footer.
	header, _, found := bytes.Cut(raw, []byte("\n---"))
	if !found {
		return 0, fmt.Errorf("not age-sealed material: no header footer")
	}

	lines := strings.Split(string(header), "\n")
	if lines[0] != ageHeaderVersion {
		return 0, fmt.Errorf("not age-sealed material: unrecognized version line")
	}

	count := 0
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "-> ") {
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("not age-sealed material: no recipient stanzas")
	}
	return count, nil
}

// ParsePublicKey validates an age public key string. Returns an error
// if the key is not a valid age x25519 public key. Useful for
// validating recipient keys read from a keyring file before sealing
// to them.
func ParsePublicKey(publicKey string) error {
	_, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// ParsePrivateKey validates an age private key stored in a
// secret.Buffer. Returns an error if the key is not a valid age
// x25519 private key.
func ParsePrivateKey(privateKey *secret.Buffer) error {
	_, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return fmt.Errorf("invalid age private key: %w", err)
	}
	return nil
}
