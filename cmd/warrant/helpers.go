// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/warrant-foundation/warrant/lib/keyset"
	"github.com/warrant-foundation/warrant/lib/policy"
	"github.com/warrant-foundation/warrant/lib/sealed"
	"github.com/warrant-foundation/warrant/lib/secret"
)

// readIdentity loads the operator's age identity. Resolution order:
// the --identity-file flag, the WARRANT_IDENTITY environment variable
// (a path), then an interactive no-echo prompt. When stdin already
// carries the command's input (stdinTaken), the piped-stdin fallback
// is disabled and a non-terminal stdin is an error. The caller must
// Close the returned buffer.
func readIdentity(identityPath string, stdinTaken bool) (*secret.Buffer, error) {
	if identityPath == "" {
		identityPath = os.Getenv("WARRANT_IDENTITY")
	}
	if identityPath != "" {
		return secret.ReadFromPath(identityPath)
	}

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		if stdinTaken {
			return nil, fmt.Errorf("stdin carries the command input; pass --identity-file or set WARRANT_IDENTITY")
		}
		// Stdin is piped — read one line without prompting.
		return secret.ReadFromPath("-")
	}

	// Interactive terminal — prompt with echo disabled.
	fmt.Fprint(os.Stderr, "Age identity: ")
	line, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("identity is empty")
	}
	buffer, err := secret.NewFromBytes(line)
	if err != nil {
		secret.Zero(line)
		return nil, err
	}
	return buffer, nil
}

// loadKeySet unseals the master key from a keyring file and wraps it
// in a KeySet. The keyring path falls back to WARRANT_KEYRING;
// identity resolution follows readIdentity. The caller must Close the
// returned KeySet.
func loadKeySet(keyringPath, identityPath string, stdinTaken bool) (*keyset.KeySet, error) {
	if keyringPath == "" {
		keyringPath = os.Getenv("WARRANT_KEYRING")
	}
	if keyringPath == "" {
		return nil, fmt.Errorf("--keyring is required (or set WARRANT_KEYRING)")
	}

	ciphertext, err := os.ReadFile(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}

	identity, err := readIdentity(identityPath, stdinTaken)
	if err != nil {
		return nil, err
	}
	defer identity.Close()

	master, err := sealed.Decrypt(strings.TrimSpace(string(ciphertext)), identity)
	if err != nil {
		return nil, fmt.Errorf("unsealing keyring %s: %w", keyringPath, err)
	}
	keys, err := keyset.New(master)
	if err != nil {
		master.Close()
		return nil, err
	}
	return keys, nil
}

// resolvePolicy loads the policy file named by the flag, falling back
// to the WARRANT_POLICY environment variable.
func resolvePolicy(path string) (*policy.Policy, error) {
	if path != "" {
		return policy.LoadFile(path)
	}
	return policy.Load()
}

// readInput reads the whole input from path, or from stdin when path
// is empty or "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// writeOutput writes data to path, or to stdout when path is empty
// or "-".
func writeOutput(path string, data []byte, perm os.FileMode) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// parseAttributes converts repeated key=value flags into a map.
func parseAttributes(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attributes := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("attribute %q is not key=value", pair)
		}
		attributes[key] = value
	}
	return attributes, nil
}

// newLogger builds the CLI's slog logger. Warnings and errors only,
// to stderr — stdout stays reserved for command output.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}
