// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy provides policy loading for warrant components.
//
// Policy is loaded from a single file specified by:
//   - WARRANT_POLICY environment variable, or
//   - --policy flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable policy with no hidden overrides.
//
// The file may be YAML (.yaml/.yml) or JSONC (.json/.jsonc — JSON
// extended with // line comments, /* block comments */, and trailing
// commas). One file declares the whole deployment: the signer
// registry, the quorum table, replay tolerances, enabled domains,
// operating boundaries, and the audit log path.
package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/warrant-foundation/warrant/lib/boundary"
	"github.com/warrant-foundation/warrant/lib/envelope"
	"github.com/warrant-foundation/warrant/lib/quorum"
)

// Policy is the master policy for a warrant deployment.
type Policy struct {
	// Signers is the registry of every identity allowed to sign
	// envelopes.
	Signers []string `yaml:"signers" json:"signers"`

	// Quorums maps actions (exact or trailing-asterisk patterns) to
	// the signer sets that must all sign.
	Quorums []QuorumRule `yaml:"quorums" json:"quorums"`

	// Replay configures verification time tolerances.
	Replay ReplayConfig `yaml:"replay" json:"replay"`

	// Domains lists the enabled domain tags by name. Empty enables
	// every registered domain.
	Domains []string `yaml:"domains,omitempty" json:"domains,omitempty"`

	// Boundaries declares the named operating envelopes.
	Boundaries []boundary.OperatingEnvelope `yaml:"boundaries,omitempty" json:"boundaries,omitempty"`

	// Audit configures the decision log.
	Audit AuditConfig `yaml:"audit" json:"audit"`
}

// QuorumRule is one row of the quorum table.
type QuorumRule struct {
	Action  string   `yaml:"action" json:"action"`
	Signers []string `yaml:"signers" json:"signers"`
}

// ReplayConfig holds verification time tolerances as duration strings
// ("5m", "30s"). Blank fields fall back to the envelope defaults.
type ReplayConfig struct {
	// Window is how far in the past an envelope timestamp may lie.
	Window string `yaml:"window" json:"window"`

	// Skew is how far in the future an envelope timestamp may lie.
	Skew string `yaml:"skew" json:"skew"`
}

// AuditConfig configures the decision log.
type AuditConfig struct {
	// Path is where the hash-chained JSONL log is appended.
	Path string `yaml:"path" json:"path"`
}

// Default returns the default policy. These defaults exist so every
// field has a sensible zero value, not as a fallback — the policy
// file is required and must declare signers and quorums itself.
func Default() *Policy {
	homeDir, _ := os.UserHomeDir()

	return &Policy{
		Replay: ReplayConfig{
			Window: "5m",
			Skew:   "30s",
		},
		Audit: AuditConfig{
			Path: filepath.Join(homeDir, ".local", "state", "warrant", "audit.jsonl"),
		},
	}
}

// Load loads policy from the WARRANT_POLICY environment variable.
//
// This is the only way to load policy without an explicit path. There
// are no fallbacks — if WARRANT_POLICY is not set, this fails.
func Load() (*Policy, error) {
	path := os.Getenv("WARRANT_POLICY")
	if path == "" {
		return nil, fmt.Errorf("WARRANT_POLICY environment variable not set; " +
			"set it to the path of your policy file, or use the --policy flag")
	}

	return LoadFile(path)
}

// LoadFile loads and validates policy from a specific file path. The
// format follows the extension: .yaml/.yml parse as YAML, .json/.jsonc
// as JSONC. Environment variables never override file values; the only
// expansion performed is ${HOME} and similar in the audit path.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}

	policy := Default()
	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, policy); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), policy); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported policy format %q (expected .yaml, .yml, .json, or .jsonc)", path, extension)
	}

	policy.expandVariables()

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return policy, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// configured paths.
func (p *Policy) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	p.Audit.Path = expandVars(p.Audit.Path, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the policy for errors. Every problem is reported,
// joined, so a bad policy halts startup with the full list rather
// than one complaint per restart.
func (p *Policy) Validate() error {
	var errs []error

	if _, err := p.Quorum(); err != nil {
		errs = append(errs, fmt.Errorf("quorums: %w", err))
	}

	if p.Replay.Window != "" {
		if window, err := time.ParseDuration(p.Replay.Window); err != nil {
			errs = append(errs, fmt.Errorf("replay.window: %w", err))
		} else if window <= 0 {
			errs = append(errs, fmt.Errorf("replay.window must be positive, got %s", p.Replay.Window))
		}
	}
	if p.Replay.Skew != "" {
		if skew, err := time.ParseDuration(p.Replay.Skew); err != nil {
			errs = append(errs, fmt.Errorf("replay.skew: %w", err))
		} else if skew < 0 {
			errs = append(errs, fmt.Errorf("replay.skew must not be negative, got %s", p.Replay.Skew))
		}
	}

	seenDomains := make(map[string]bool, len(p.Domains))
	for _, name := range p.Domains {
		if _, err := envelope.ParseDomain(name); err != nil {
			errs = append(errs, fmt.Errorf("domains: %w", err))
			continue
		}
		if seenDomains[name] {
			errs = append(errs, fmt.Errorf("domains: %q listed twice", name))
		}
		seenDomains[name] = true
	}

	seenBoundaries := make(map[string]bool, len(p.Boundaries))
	for index, declared := range p.Boundaries {
		if declared.Name == "" {
			errs = append(errs, fmt.Errorf("boundaries[%d]: name is required", index))
		} else if seenBoundaries[declared.Name] {
			errs = append(errs, fmt.Errorf("boundary %q declared twice", declared.Name))
		}
		seenBoundaries[declared.Name] = true

		if _, err := boundary.NewEvaluator(declared); err != nil {
			errs = append(errs, err)
		}
		// A declared runbook must be actionable whatever the
		// behavior; a missing one is already an evaluator error for
		// the behaviors that require it.
		if declared.Recovery.Runbook != "" {
			if err := ValidateRunbook(declared.Recovery.Runbook); err != nil {
				errs = append(errs, fmt.Errorf("boundary %q: runbook: %w", declared.Name, err))
			}
		}
	}

	if p.Audit.Path == "" {
		errs = append(errs, fmt.Errorf("audit.path is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Quorum builds the signer-quorum policy from the registry and the
// quorum table.
func (p *Policy) Quorum() (*quorum.Policy, error) {
	rules := make([]quorum.Rule, len(p.Quorums))
	for i, rule := range p.Quorums {
		rules[i] = quorum.Rule{Action: rule.Action, Signers: rule.Signers}
	}
	return quorum.New(p.Signers, rules)
}

// Evaluators builds one boundary evaluator per declared operating
// envelope, keyed by name. Callers that loaded through LoadFile can
// rely on this succeeding; Validate has already proven each envelope.
func (p *Policy) Evaluators() (map[string]*boundary.Evaluator, error) {
	evaluators := make(map[string]*boundary.Evaluator, len(p.Boundaries))
	for index, declared := range p.Boundaries {
		if declared.Name == "" {
			return nil, fmt.Errorf("boundaries[%d]: name is required", index)
		}
		if _, dup := evaluators[declared.Name]; dup {
			return nil, fmt.Errorf("boundary %q declared twice", declared.Name)
		}
		evaluator, err := boundary.NewEvaluator(declared)
		if err != nil {
			return nil, err
		}
		evaluators[declared.Name] = evaluator
	}
	return evaluators, nil
}

// EnabledDomains resolves the configured domain names. An empty list
// enables every registered domain.
func (p *Policy) EnabledDomains() []envelope.Domain {
	if len(p.Domains) == 0 {
		return envelope.Domains()
	}
	domains := make([]envelope.Domain, 0, len(p.Domains))
	for _, name := range p.Domains {
		if domain, err := envelope.ParseDomain(name); err == nil {
			domains = append(domains, domain)
		}
	}
	return domains
}

// ReplayWindow returns the configured freshness window, falling back
// to the envelope default when unset or unparseable.
func (p *Policy) ReplayWindow() time.Duration {
	if window, err := time.ParseDuration(p.Replay.Window); err == nil && window > 0 {
		return window
	}
	return envelope.DefaultFreshnessWindow
}

// ClockSkew returns the configured forward skew tolerance, falling
// back to the envelope default when unset or unparseable.
func (p *Policy) ClockSkew() time.Duration {
	if skew, err := time.ParseDuration(p.Replay.Skew); err == nil && skew >= 0 {
		return skew
	}
	return envelope.DefaultClockSkew
}
