// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package quorum

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Rule binds one action pattern to its required signer set.
type Rule struct {
	// Action is the action category the rule covers: an exact name
	// ("delete") or a trailing-* pattern ("config/*"). Matching is
	// case-sensitive.
	Action string

	// Signers is the ordered set of signer identities whose signatures
	// are all required. Order is presentational; satisfaction is a
	// subset test.
	Signers []string
}

// Policy is the read-only quorum table. Construct with New; safe for
// concurrent use by any number of verifiers.
type Policy struct {
	registry map[string]struct{}
	rules    []Rule
}

// New builds a Policy from a signer registry and an ordered rule list.
// Construction validates eagerly:
//
//   - the registry must be non-empty, with no blank or duplicate names
//   - every rule needs a non-empty action and at least one signer
//   - every signer a rule names must exist in the registry
//   - a rule must not name the same signer twice
//
// All violations are reported together.
func New(signers []string, rules []Rule) (*Policy, error) {
	var problems []error

	registry := make(map[string]struct{}, len(signers))
	for _, name := range signers {
		if name == "" {
			problems = append(problems, errors.New("quorum: blank signer name in registry"))
			continue
		}
		if _, dup := registry[name]; dup {
			problems = append(problems, fmt.Errorf("quorum: duplicate signer %q in registry", name))
			continue
		}
		registry[name] = struct{}{}
	}
	if len(registry) == 0 {
		problems = append(problems, errors.New("quorum: signer registry is empty"))
	}

	for index, rule := range rules {
		if rule.Action == "" {
			problems = append(problems, fmt.Errorf("quorum: rule %d has an empty action", index))
		}
		if len(rule.Signers) == 0 {
			problems = append(problems, fmt.Errorf("quorum: rule %d (%q) names no signers", index, rule.Action))
		}
		seen := make(map[string]struct{}, len(rule.Signers))
		for _, name := range rule.Signers {
			if _, known := registry[name]; !known {
				problems = append(problems, fmt.Errorf("quorum: rule %d (%q) names unknown signer %q", index, rule.Action, name))
			}
			if _, dup := seen[name]; dup {
				problems = append(problems, fmt.Errorf("quorum: rule %d (%q) names signer %q twice", index, rule.Action, name))
			}
			seen[name] = struct{}{}
		}
	}

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	copied := make([]Rule, len(rules))
	for index, rule := range rules {
		copied[index] = Rule{
			Action:  rule.Action,
			Signers: slices.Clone(rule.Signers),
		}
	}
	return &Policy{registry: registry, rules: copied}, nil
}

// Required returns the ordered signer set for an action and whether
// any rule matched. Rules are checked in declaration order; the first
// match wins. The returned slice is a copy.
func (p *Policy) Required(action string) ([]string, bool) {
	for _, rule := range p.rules {
		if matchAction(rule.Action, action) {
			return slices.Clone(rule.Signers), true
		}
	}
	return nil, false
}

// Knows reports whether a signer identity exists in the registry.
func (p *Policy) Knows(signer string) bool {
	_, known := p.registry[signer]
	return known
}

// Signers returns the registry in sorted order.
func (p *Policy) Signers() []string {
	names := make([]string, 0, len(p.registry))
	for name := range p.registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// matchAction reports whether pattern covers action. A pattern ending
// in "*" matches any action with the preceding prefix; anything else
// matches exactly.
func matchAction(pattern, action string) bool {
	if prefix, wild := strings.CutSuffix(pattern, "*"); wild {
		return strings.HasPrefix(action, prefix)
	}
	return pattern == action
}
