// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/warrant-foundation/warrant/lib/audit"
	"github.com/warrant-foundation/warrant/lib/clock"
	"github.com/warrant-foundation/warrant/lib/codec"
	"github.com/warrant-foundation/warrant/lib/envelope"
	"github.com/warrant-foundation/warrant/lib/replay"
)

// errDenied is the only error `warrant open` returns for a failed
// verification. Deny and quarantine share it: the exit code and the
// noise on stdout are the complete observable surface, identical for
// both outcomes.
var errDenied = errors.New("request denied")

// runSeal seals an authorization envelope from a JSON payload.
func runSeal(args []string) error {
	flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
	keyringPath := flagSet.String("keyring", "", "sealed keyring file (default $WARRANT_KEYRING)")
	identityPath := flagSet.String("identity-file", "", "age identity file (default $WARRANT_IDENTITY or prompt)")
	domainName := flagSet.String("domain", "", "envelope domain (e.g. warrant/command)")
	action := flagSet.String("action", "", "action category the payload requests")
	origin := flagSet.String("origin", "", "signer ID of the sealing party")
	signers := flagSet.StringArray("signer", nil, "signer ID to sign as (repeatable, default: the origin)")
	attrs := flagSet.StringArray("attr", nil, "header attribute as key=value (repeatable)")
	payloadPath := flagSet.String("payload-file", "", "JSON payload file (default stdin)")
	outPath := flagSet.String("out", "", "write the envelope to this file (default stdout)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *domainName == "" {
		return fmt.Errorf("--domain is required (one of: %s)", domainNames())
	}
	if *action == "" {
		return fmt.Errorf("--action is required")
	}
	if *origin == "" {
		return fmt.Errorf("--origin is required")
	}

	domain, err := envelope.ParseDomain(*domainName)
	if err != nil {
		return err
	}
	attributes, err := parseAttributes(*attrs)
	if err != nil {
		return err
	}

	payloadBytes, err := readInput(*payloadPath)
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return fmt.Errorf("payload must be valid JSON: %w", err)
	}

	stdinTaken := *payloadPath == "" || *payloadPath == "-"
	keys, err := loadKeySet(*keyringPath, *identityPath, stdinTaken)
	if err != nil {
		return err
	}
	defer keys.Close()

	signerIDs := *signers
	if len(signerIDs) == 0 {
		signerIDs = []string{*origin}
	}

	sealer, err := envelope.NewSealer(keys, *origin, clock.Real())
	if err != nil {
		return err
	}
	env, err := sealer.Seal(domain, envelope.Header{
		Action:     *action,
		Attributes: attributes,
	}, payload, signerIDs)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	if err := writeOutput(*outPath, append(out, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Sealed %s envelope for action %q with %d signer(s)\n",
		domain, *action, len(signerIDs))
	return nil
}

// runOpen verifies an envelope against the policy and, on allow,
// prints its payload as JSON. On deny or quarantine it prints the
// deterministic noise object and exits nonzero; the two outcomes are
// indistinguishable from the outside.
func runOpen(args []string) error {
	flagSet := pflag.NewFlagSet("open", pflag.ContinueOnError)
	policyPath := flagSet.String("policy", "", "policy file (default $WARRANT_POLICY)")
	keyringPath := flagSet.String("keyring", "", "sealed keyring file (default $WARRANT_KEYRING)")
	identityPath := flagSet.String("identity-file", "", "age identity file (default $WARRANT_IDENTITY or prompt)")
	envelopePath := flagSet.String("envelope-file", "", "envelope JSON file (default stdin)")
	outPath := flagSet.String("out", "", "write the opened payload to this file (default stdout)")
	redisAddr := flagSet.String("redis", "", "redis address for the shared replay cache (default in-process)")
	auditLog := flagSet.String("audit-log", "", "audit log path (default: the policy's audit.path)")
	noAudit := flagSet.Bool("no-audit", false, "skip audit recording")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	pol, err := resolvePolicy(*policyPath)
	if err != nil {
		return err
	}
	quorumPolicy, err := pol.Quorum()
	if err != nil {
		return err
	}

	envelopeBytes, err := readInput(*envelopePath)
	if err != nil {
		return err
	}
	// A JSON-broken envelope is protocol input, not operator error:
	// feed the zero envelope to the verifier so the output is the same
	// structural-deny noise a tampered wire message would get.
	var env envelope.Envelope
	if err := json.Unmarshal(envelopeBytes, &env); err != nil {
		env = envelope.Envelope{}
	}

	// A registered domain the policy has not enabled is refused up
	// front: that is deployment configuration, not verification.
	// Invalid tags flow through the verifier's registry stage instead.
	if env.Domain.Valid() && !slices.Contains(pol.EnabledDomains(), env.Domain) {
		return fmt.Errorf("domain %s is not enabled by this policy", env.Domain)
	}

	stdinTaken := *envelopePath == "" || *envelopePath == "-"
	keys, err := loadKeySet(*keyringPath, *identityPath, stdinTaken)
	if err != nil {
		return err
	}
	defer keys.Close()

	window := pol.ReplayWindow()
	var cache replay.Cache
	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer client.Close()
		cache = replay.NewRedis(client, window)
	} else {
		cache = replay.NewMemory(window)
	}

	options := []envelope.VerifierOption{
		envelope.WithFreshnessWindow(window),
		envelope.WithClockSkew(pol.ClockSkew()),
	}
	if !*noAudit {
		logPath := *auditLog
		if logPath == "" {
			logPath = pol.Audit.Path
		}
		if logPath != "" {
			log, err := audit.Open(logPath, clock.Real(), audit.WithLogger(newLogger()))
			if err != nil {
				return fmt.Errorf("opening audit log: %w", err)
			}
			defer log.Close()
			options = append(options, envelope.WithRecorder(log))
		}
	}

	verifier := envelope.NewVerifier(keys, quorumPolicy, cache, clock.Real(), options...)
	decision, result := verifier.VerifyAndOpen(&env)

	if decision != envelope.Allow {
		noise, err := json.Marshal(result.Noise)
		if err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
		fmt.Println(string(noise))
		return errDenied
	}

	var payload any
	if err := codec.Unmarshal(result.Payload, &payload); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := writeOutput(*outPath, append(out, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "allow: %s %q (%d/%d signers)\n",
		env.Domain, env.Header.Action, len(result.ValidSigners), len(result.RequiredSigners))
	return nil
}

// domainNames lists the registered domain names for usage text.
func domainNames() string {
	names := ""
	for i, domain := range envelope.Domains() {
		if i > 0 {
			names += ", "
		}
		names += domain.String()
	}
	return names
}
