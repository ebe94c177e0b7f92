// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package boundary

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Behavior is the policy-declared disposition for actions outside the
// boundary. The evaluator never computes it — it only validates and
// echoes it.
type Behavior string

const (
	// AutoAllow lets in-boundary actions proceed without escalation.
	AutoAllow Behavior = "AUTO_ALLOW"

	// Quarantine holds out-of-boundary actions for review. Requires a
	// recovery record.
	Quarantine Behavior = "QUARANTINE"

	// Deny rejects out-of-boundary actions outright. Requires a
	// recovery record.
	Deny Behavior = "DENY"
)

// Valid reports whether the behavior is one of the three declared
// dispositions.
func (b Behavior) Valid() bool {
	switch b {
	case AutoAllow, Quarantine, Deny:
		return true
	}
	return false
}

// Recovery is the escalation path a quarantining or denying boundary
// must publish: someone to contact and a runbook of concrete steps.
// Runbook structure is validated at policy load.
type Recovery struct {
	Contact string `json:"contact" yaml:"contact"`
	Runbook string `json:"runbook" yaml:"runbook"`
}

// OperatingEnvelope declares one boundary: resource floors and
// ceilings, categorical allowlists, a risk-tier ceiling under a total
// tier order, the scarcity limit, the admission cost curve, and the
// mapped behavior. An empty allowlist leaves that facet unconstrained;
// an empty tier order disables the tier check.
type OperatingEnvelope struct {
	// Name identifies the boundary in policy and audit records.
	Name string `json:"name" yaml:"name"`

	// Floors maps resource names to minimum healthy levels. Levels
	// below a floor drive the scarcity score.
	Floors map[string]float64 `json:"floors,omitempty" yaml:"floors,omitempty"`

	// Ceilings maps resource names to maximum levels. Overshoot is a
	// named violation and does not affect scarcity.
	Ceilings map[string]float64 `json:"ceilings,omitempty" yaml:"ceilings,omitempty"`

	// Tiers is the total risk-tier order, least to most risky.
	Tiers []string `json:"tiers,omitempty" yaml:"tiers,omitempty"`

	// MaxTier is the most risky admissible tier. Must appear in Tiers.
	MaxTier string `json:"max_tier,omitempty" yaml:"max_tier,omitempty"`

	// Allowlists. Entries support a trailing-asterisk prefix pattern,
	// the same matching quorum rules use.
	Phases       []string `json:"phases,omitempty" yaml:"phases,omitempty"`
	Agents       []string `json:"agents,omitempty" yaml:"agents,omitempty"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Targets      []string `json:"targets,omitempty" yaml:"targets,omitempty"`

	// ScarcityLimit is the admissible scarcity score, in [0,1].
	ScarcityLimit float64 `json:"scarcity_limit" yaml:"scarcity_limit"`

	// CostBase and CostAlpha shape the admission cost
	// base^(alpha·scarcity²). Base must be at least 1, alpha
	// non-negative, so the cost is always at least 1.
	CostBase  float64 `json:"cost_base" yaml:"cost_base"`
	CostAlpha float64 `json:"cost_alpha" yaml:"cost_alpha"`

	// Behavior is the declared disposition; Quarantine and Deny
	// require Recovery.
	Behavior Behavior `json:"behavior" yaml:"behavior"`
	Recovery Recovery `json:"recovery,omitempty" yaml:"recovery,omitempty"`
}

// Action is one admission request evaluated against a boundary.
type Action struct {
	Name       string `json:"name"`
	Phase      string `json:"phase,omitempty"`
	Agent      string `json:"agent,omitempty"`
	Capability string `json:"capability,omitempty"`
	Target     string `json:"target,omitempty"`
	Tier       string `json:"tier,omitempty"`
}

// ResourceState is the observed level per resource name.
type ResourceState map[string]float64

// Result is one evaluation outcome. Identical inputs always produce
// an identical Result; business-rule breaches populate Violations,
// never an error.
type Result struct {
	// Inside holds iff Violations is empty and Scarcity is at most
	// the envelope's limit.
	Inside bool `json:"inside"`

	// Scarcity is the mean relative floor deficit, in [0,1].
	Scarcity float64 `json:"scarcity"`

	// Cost is the harmonic admission cost base^(alpha·scarcity²):
	// near 1 when resources are comfortable, steep near any floor.
	Cost float64 `json:"cost"`

	// Violations names every categorical or ceiling breach, in a
	// deterministic order. A scarcity-limit breach flips Inside
	// without appearing here.
	Violations []string `json:"violations,omitempty"`
}

// Evaluator evaluates actions against one validated operating
// envelope. Read-only after construction; safe for concurrent use.
type Evaluator struct {
	envelope     OperatingEnvelope
	floorOrder   []string
	ceilingOrder []string
	tierIndex    map[string]int
	maxTierIndex int
}

// NewEvaluator validates the envelope and builds an evaluator over a
// private copy of it. Validation failures are configuration errors:
// every problem is reported, joined, so a bad policy halts startup
// with the full list.
func NewEvaluator(envelope OperatingEnvelope) (*Evaluator, error) {
	var problems []error

	if !envelope.Behavior.Valid() {
		problems = append(problems, fmt.Errorf("behavior %q is not AUTO_ALLOW, QUARANTINE, or DENY", envelope.Behavior))
	}
	if envelope.Behavior == Quarantine || envelope.Behavior == Deny {
		if envelope.Recovery.Contact == "" {
			problems = append(problems, fmt.Errorf("behavior %s requires a recovery contact", envelope.Behavior))
		}
		if envelope.Recovery.Runbook == "" {
			problems = append(problems, fmt.Errorf("behavior %s requires a recovery runbook", envelope.Behavior))
		}
	}
	if envelope.ScarcityLimit < 0 || envelope.ScarcityLimit > 1 {
		problems = append(problems, fmt.Errorf("scarcity limit %g is outside [0,1]", envelope.ScarcityLimit))
	}
	if envelope.CostBase < 1 {
		problems = append(problems, fmt.Errorf("cost base %g is below 1", envelope.CostBase))
	}
	if envelope.CostAlpha < 0 {
		problems = append(problems, fmt.Errorf("cost alpha %g is negative", envelope.CostAlpha))
	}

	for _, resource := range slices.Sorted(maps.Keys(envelope.Floors)) {
		if floor := envelope.Floors[resource]; floor <= 0 {
			problems = append(problems, fmt.Errorf("floor for %q is %g, must be positive", resource, floor))
		}
	}
	for _, resource := range slices.Sorted(maps.Keys(envelope.Ceilings)) {
		ceiling := envelope.Ceilings[resource]
		if ceiling <= 0 {
			problems = append(problems, fmt.Errorf("ceiling for %q is %g, must be positive", resource, ceiling))
		}
		if floor, ok := envelope.Floors[resource]; ok && ceiling < floor {
			problems = append(problems, fmt.Errorf("ceiling for %q (%g) is below its floor (%g)", resource, ceiling, floor))
		}
	}

	tierIndex := make(map[string]int, len(envelope.Tiers))
	for index, tier := range envelope.Tiers {
		if tier == "" {
			problems = append(problems, fmt.Errorf("tier %d is blank", index))
			continue
		}
		if _, dup := tierIndex[tier]; dup {
			problems = append(problems, fmt.Errorf("tier %q appears twice", tier))
			continue
		}
		tierIndex[tier] = index
	}
	maxTierIndex := -1
	if len(envelope.Tiers) == 0 {
		if envelope.MaxTier != "" {
			problems = append(problems, fmt.Errorf("max tier %q declared without a tier order", envelope.MaxTier))
		}
	} else {
		index, ok := tierIndex[envelope.MaxTier]
		if !ok {
			problems = append(problems, fmt.Errorf("max tier %q is not in the tier order", envelope.MaxTier))
		}
		maxTierIndex = index
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("boundary %q: %w", envelope.Name, errors.Join(problems...))
	}

	// Private copy: the evaluator must stay read-only even if the
	// caller keeps mutating its envelope value.
	envelope.Floors = maps.Clone(envelope.Floors)
	envelope.Ceilings = maps.Clone(envelope.Ceilings)
	envelope.Tiers = slices.Clone(envelope.Tiers)
	envelope.Phases = slices.Clone(envelope.Phases)
	envelope.Agents = slices.Clone(envelope.Agents)
	envelope.Capabilities = slices.Clone(envelope.Capabilities)
	envelope.Targets = slices.Clone(envelope.Targets)

	return &Evaluator{
		envelope:     envelope,
		floorOrder:   slices.Sorted(maps.Keys(envelope.Floors)),
		ceilingOrder: slices.Sorted(maps.Keys(envelope.Ceilings)),
		tierIndex:    tierIndex,
		maxTierIndex: maxTierIndex,
	}, nil
}

// Name returns the envelope's declared name.
func (e *Evaluator) Name() string { return e.envelope.Name }

// Behavior returns the envelope's declared disposition.
func (e *Evaluator) Behavior() Behavior { return e.envelope.Behavior }

// Recovery returns the envelope's recovery record.
func (e *Evaluator) Recovery() Recovery { return e.envelope.Recovery }

// Evaluate scores one action against the boundary. Pure: no state, no
// errors — business-rule breaches land in Result.Violations and the
// scarcity arithmetic is total on any input.
func (e *Evaluator) Evaluate(action Action, state ResourceState) Result {
	var violations []string

	deficitSum := 0.0
	for _, resource := range e.floorOrder {
		floor := e.envelope.Floors[resource]
		observed, present := state[resource]
		if !present {
			// Unreported resources count as fully deficient: absence
			// of telemetry must not read as abundance.
			deficitSum++
			continue
		}
		deficit := (floor - observed) / floor
		deficitSum += min(1, max(0, deficit))
	}
	scarcity := 0.0
	if len(e.floorOrder) > 0 {
		scarcity = deficitSum / float64(len(e.floorOrder))
	}
	cost := math.Pow(e.envelope.CostBase, e.envelope.CostAlpha*scarcity*scarcity)

	for _, resource := range e.ceilingOrder {
		ceiling := e.envelope.Ceilings[resource]
		if observed, present := state[resource]; present && observed > ceiling {
			violations = append(violations,
				fmt.Sprintf("ceiling: %s at %g exceeds %g", resource, observed, ceiling))
		}
	}

	if !listAllows(e.envelope.Phases, action.Phase) {
		violations = append(violations, fmt.Sprintf("phase: %q not allowed", action.Phase))
	}
	if !listAllows(e.envelope.Agents, action.Agent) {
		violations = append(violations, fmt.Sprintf("agent: %q not allowed", action.Agent))
	}
	if !listAllows(e.envelope.Capabilities, action.Capability) {
		violations = append(violations, fmt.Sprintf("capability: %q not allowed", action.Capability))
	}
	if !listAllows(e.envelope.Targets, action.Target) {
		violations = append(violations, fmt.Sprintf("target: %q not allowed", action.Target))
	}

	if len(e.envelope.Tiers) > 0 {
		index, known := e.tierIndex[action.Tier]
		switch {
		case !known:
			violations = append(violations, fmt.Sprintf("tier: %q is not in the tier order", action.Tier))
		case index > e.maxTierIndex:
			violations = append(violations,
				fmt.Sprintf("tier: %q exceeds maximum %q", action.Tier, e.envelope.MaxTier))
		}
	}

	return Result{
		Inside:     len(violations) == 0 && scarcity <= e.envelope.ScarcityLimit,
		Scarcity:   scarcity,
		Cost:       cost,
		Violations: violations,
	}
}

// listAllows reports whether value matches the allowlist. An empty
// list is unconstrained. Entries match exactly or, with a trailing
// asterisk, as a prefix.
func listAllows(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	for _, entry := range list {
		if prefix, wild := strings.CutSuffix(entry, "*"); wild {
			if strings.HasPrefix(value, prefix) {
				return true
			}
			continue
		}
		if entry == value {
			return true
		}
	}
	return false
}
