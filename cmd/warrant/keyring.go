// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/warrant-foundation/warrant/lib/keyset"
	"github.com/warrant-foundation/warrant/lib/sealed"
	"github.com/warrant-foundation/warrant/lib/secret"
)

func runKeyring(args []string) error {
	if len(args) < 1 {
		printKeyringUsage()
		return fmt.Errorf("keyring subcommand required")
	}
	switch args[0] {
	case "keygen":
		return runKeyringKeygen(args[1:])
	case "seal":
		return runKeyringSeal(args[1:])
	case "inspect":
		return runKeyringInspect(args[1:])
	case "-h", "--help", "help":
		printKeyringUsage()
		return nil
	default:
		printKeyringUsage()
		return fmt.Errorf("unknown keyring subcommand: %q", args[0])
	}
}

func printKeyringUsage() {
	fmt.Fprintf(os.Stderr, `Usage: warrant keyring <subcommand> [flags]

Subcommands:
  keygen      Generate an age keypair (for unsealing keyrings)
  seal        Seal a fresh master key to one or more age recipients
  inspect     Show recipient count and optionally verify unsealing
`)
}

// runKeyringKeygen generates a new age keypair and prints it.
// The public key goes to stdout (for sharing/embedding).
// The private key goes to stderr (for safekeeping).
func runKeyringKeygen(args []string) error {
	flagSet := pflag.NewFlagSet("keyring keygen", pflag.ContinueOnError)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generating keypair: %w", err)
	}
	defer keypair.Close()

	fmt.Fprintf(os.Stderr, "# Private key (keep this secret — store securely):\n")
	fmt.Fprintf(os.Stderr, "%s\n", keypair.PrivateKey.String())
	fmt.Fprintf(os.Stdout, "%s\n", keypair.PublicKey)
	return nil
}

// runKeyringSeal generates a fresh random master key and seals it to
// the given age recipients. The plaintext key never touches disk or
// stdout; only the sealed ciphertext leaves the process.
func runKeyringSeal(args []string) error {
	flagSet := pflag.NewFlagSet("keyring seal", pflag.ContinueOnError)
	recipients := flagSet.StringArray("recipient", nil, "age public key to seal to (repeatable, at least one)")
	outPath := flagSet.String("out", "", "write the sealed keyring to this file (default stdout)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if len(*recipients) == 0 {
		return fmt.Errorf("at least one --recipient is required")
	}
	for _, recipient := range *recipients {
		if err := sealed.ParsePublicKey(recipient); err != nil {
			return err
		}
	}

	raw := make([]byte, keyset.KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return fmt.Errorf("generating master key: %w", err)
	}
	master, err := secret.NewFromBytes(raw)
	if err != nil {
		secret.Zero(raw)
		return err
	}
	defer master.Close()

	ciphertext, err := sealed.Encrypt(master, *recipients)
	if err != nil {
		return err
	}
	if err := writeOutput(*outPath, []byte(ciphertext+"\n"), 0o600); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Sealed a fresh %d-byte master key to %d recipient(s)\n",
		keyset.KeySize, len(*recipients))
	return nil
}

// runKeyringInspect reports the recipient count and sealed size of a
// keyring file. With --identity-file it additionally verifies that the
// keyring unseals to a master key of the right size.
func runKeyringInspect(args []string) error {
	flagSet := pflag.NewFlagSet("keyring inspect", pflag.ContinueOnError)
	keyringPath := flagSet.String("keyring", "", "sealed keyring file (default $WARRANT_KEYRING)")
	identityPath := flagSet.String("identity-file", "", "age identity file; when set, verify the keyring unseals")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path := *keyringPath
	if path == "" {
		path = os.Getenv("WARRANT_KEYRING")
	}
	if path == "" {
		return fmt.Errorf("--keyring is required (or set WARRANT_KEYRING)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading keyring: %w", err)
	}
	ciphertext := strings.TrimSpace(string(data))

	count, err := sealed.RecipientStanzas(ciphertext)
	if err != nil {
		return fmt.Errorf("keyring %s: %w", path, err)
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return fmt.Errorf("keyring %s: %w", path, err)
	}

	fmt.Printf("Keyring: %s\n", path)
	fmt.Printf("  Sealed size: %d bytes\n", len(raw))
	fmt.Printf("  Recipients:  %d\n", count)

	if *identityPath != "" {
		identity, err := secret.ReadFromPath(*identityPath)
		if err != nil {
			return err
		}
		defer identity.Close()

		master, err := sealed.Decrypt(ciphertext, identity)
		if err != nil {
			return fmt.Errorf("keyring does not unseal with this identity: %w", err)
		}
		defer master.Close()

		if master.Len() != keyset.KeySize {
			return fmt.Errorf("keyring unseals to %d bytes, want %d", master.Len(), keyset.KeySize)
		}
		fmt.Printf("  Master key:  unseals to %d bytes (ok)\n", keyset.KeySize)
	}
	return nil
}
