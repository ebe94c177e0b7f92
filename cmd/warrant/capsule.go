// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/warrant-foundation/warrant/lib/capsule"
	"github.com/warrant-foundation/warrant/lib/secret"
)

func runCapsule(args []string) error {
	if len(args) < 1 {
		printCapsuleUsage()
		return fmt.Errorf("capsule subcommand required")
	}
	switch args[0] {
	case "seal":
		return runCapsuleSeal(args[1:])
	case "attempt":
		return runCapsuleAttempt(args[1:])
	case "-h", "--help", "help":
		printCapsuleUsage()
		return nil
	default:
		printCapsuleUsage()
		return fmt.Errorf("unknown capsule subcommand: %q", args[0])
	}
}

func printCapsuleUsage() {
	fmt.Fprintf(os.Stderr, `Usage: warrant capsule <subcommand> [flags]

Subcommands:
  seal        Seal a secret under a predicate commitment
  attempt     Attempt to open a capsule with claimed predicates
`)
}

// predicatesFile is the JSON schema for a predicates file. The
// predicate values are key material: treat the file like a credential.
type predicatesFile struct {
	Identity string          `json:"identity,omitempty"`
	Point    []float64       `json:"point,omitempty"`
	Path     []string        `json:"path,omitempty"`
	Shares   []capsule.Share `json:"shares,omitempty"`
}

// loadPredicates reads a predicates JSON file. A misspelled key would
// silently commit a zero value, so unknown fields are rejected.
func loadPredicates(path string) (capsule.Predicates, error) {
	if path == "" {
		return capsule.Predicates{}, fmt.Errorf("--predicates-file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return capsule.Predicates{}, fmt.Errorf("reading predicates: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var file predicatesFile
	if err := decoder.Decode(&file); err != nil {
		return capsule.Predicates{}, fmt.Errorf("predicates file %s: %w", path, err)
	}
	return capsule.Predicates{
		Identity: file.Identity,
		Point:    capsule.Point(file.Point),
		Path:     file.Path,
		Shares:   file.Shares,
	}, nil
}

// runCapsuleSeal seals a secret under the predicates in a JSON file.
func runCapsuleSeal(args []string) error {
	flagSet := pflag.NewFlagSet("capsule seal", pflag.ContinueOnError)
	secretPath := flagSet.String("secret-file", "", "secret to seal, raw bytes (default stdin)")
	predicatesPath := flagSet.String("predicates-file", "", "JSON file with the committed predicates")
	label := flagSet.String("label", "", "public capsule label")
	attrs := flagSet.StringArray("attr", nil, "public metadata attribute as key=value (repeatable)")
	outPath := flagSet.String("out", "", "write the capsule to this file (default stdout)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	predicates, err := loadPredicates(*predicatesPath)
	if err != nil {
		return err
	}
	attributes, err := parseAttributes(*attrs)
	if err != nil {
		return err
	}
	material, err := readInput(*secretPath)
	if err != nil {
		return err
	}

	sealedCapsule, err := capsule.Seal(material, predicates, capsule.Meta{
		Label:      *label,
		CreatedAt:  time.Now().UnixMilli(),
		Attributes: attributes,
	})
	secret.Zero(material)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(sealedCapsule, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding capsule: %w", err)
	}
	if err := writeOutput(*outPath, append(out, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Sealed capsule %q\n", *label)
	return nil
}

// runCapsuleAttempt tries to open a capsule with claimed predicates.
// On mismatch the only output is the library's opaque error: nothing
// reveals which predicate failed.
func runCapsuleAttempt(args []string) error {
	flagSet := pflag.NewFlagSet("capsule attempt", pflag.ContinueOnError)
	capsulePath := flagSet.String("capsule-file", "", "capsule JSON file (default stdin)")
	predicatesPath := flagSet.String("predicates-file", "", "JSON file with the claimed predicates")
	outPath := flagSet.String("out", "", "write the opened secret to this file (default stdout)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	predicates, err := loadPredicates(*predicatesPath)
	if err != nil {
		return err
	}
	capsuleBytes, err := readInput(*capsulePath)
	if err != nil {
		return err
	}
	var sealedCapsule capsule.Capsule
	if err := json.Unmarshal(capsuleBytes, &sealedCapsule); err != nil {
		return fmt.Errorf("capsule is not valid JSON: %w", err)
	}

	material, err := sealedCapsule.Attempt(predicates)
	if err != nil {
		return err
	}
	if err := writeOutput(*outPath, material, 0o600); err != nil {
		secret.Zero(material)
		return err
	}
	secret.Zero(material)
	fmt.Fprintf(os.Stderr, "Opened capsule (%d-byte secret)\n", len(material))
	return nil
}
