// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package boundary

import (
	"math"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func testEnvelope() OperatingEnvelope {
	return OperatingEnvelope{
		Name: "escrow-release",
		Floors: map[string]float64{
			"credits": 100,
			"trust":   0.5,
		},
		Ceilings: map[string]float64{
			"pending": 8,
		},
		Tiers:         []string{"routine", "elevated", "critical"},
		MaxTier:       "elevated",
		Phases:        []string{"execution", "custody"},
		Agents:        []string{"agent/treasury", "agent/ops/*"},
		Capabilities:  []string{"escrow.release"},
		Targets:       []string{"vault/*"},
		ScarcityLimit: 0.4,
		CostBase:      4,
		CostAlpha:     2,
		Behavior:      Quarantine,
		Recovery: Recovery{
			Contact: "custody-oncall@warrant.test",
			Runbook: "# Escrow release held\n\n- Page custody on-call.\n- Freeze the vault until reviewed.",
		},
	}
}

func testAction() Action {
	return Action{
		Name:       "escrow/release",
		Phase:      "custody",
		Agent:      "agent/treasury",
		Capability: "escrow.release",
		Target:     "vault/north-7",
		Tier:       "elevated",
	}
}

func testState() ResourceState {
	return ResourceState{"credits": 250, "trust": 0.9, "pending": 3}
}

func testEvaluator(t *testing.T, envelope OperatingEnvelope) *Evaluator {
	t.Helper()
	evaluator, err := NewEvaluator(envelope)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return evaluator
}

func TestEvaluate_InsideBoundary(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	result := evaluator.Evaluate(testAction(), testState())
	if !result.Inside {
		t.Fatalf("expected inside, got %+v", result)
	}
	if result.Scarcity != 0 {
		t.Fatalf("scarcity = %g, want 0", result.Scarcity)
	}
	if result.Cost != 1 {
		t.Fatalf("cost = %g, want 1 at zero scarcity", result.Cost)
	}
	if len(result.Violations) != 0 {
		t.Fatalf("unexpected violations: %v", result.Violations)
	}
}

func TestNewEvaluator_Validation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(e *OperatingEnvelope)
		wantErr string
	}{
		{
			name:    "blank behavior",
			mutate:  func(e *OperatingEnvelope) { e.Behavior = "" },
			wantErr: "not AUTO_ALLOW",
		},
		{
			name:    "unknown behavior",
			mutate:  func(e *OperatingEnvelope) { e.Behavior = "allow" },
			wantErr: "not AUTO_ALLOW",
		},
		{
			name:    "quarantine without contact",
			mutate:  func(e *OperatingEnvelope) { e.Recovery.Contact = "" },
			wantErr: "requires a recovery contact",
		},
		{
			name: "deny without runbook",
			mutate: func(e *OperatingEnvelope) {
				e.Behavior = Deny
				e.Recovery.Runbook = ""
			},
			wantErr: "requires a recovery runbook",
		},
		{
			name:    "scarcity limit negative",
			mutate:  func(e *OperatingEnvelope) { e.ScarcityLimit = -0.1 },
			wantErr: "outside [0,1]",
		},
		{
			name:    "scarcity limit above one",
			mutate:  func(e *OperatingEnvelope) { e.ScarcityLimit = 1.5 },
			wantErr: "outside [0,1]",
		},
		{
			name:    "cost base below one",
			mutate:  func(e *OperatingEnvelope) { e.CostBase = 0.99 },
			wantErr: "below 1",
		},
		{
			name:    "cost base unset",
			mutate:  func(e *OperatingEnvelope) { e.CostBase = 0 },
			wantErr: "below 1",
		},
		{
			name:    "negative alpha",
			mutate:  func(e *OperatingEnvelope) { e.CostAlpha = -1 },
			wantErr: "negative",
		},
		{
			name:    "zero floor",
			mutate:  func(e *OperatingEnvelope) { e.Floors["credits"] = 0 },
			wantErr: "must be positive",
		},
		{
			name:    "zero ceiling",
			mutate:  func(e *OperatingEnvelope) { e.Ceilings["pending"] = 0 },
			wantErr: "must be positive",
		},
		{
			name: "ceiling below floor",
			mutate: func(e *OperatingEnvelope) {
				e.Ceilings["credits"] = 50
			},
			wantErr: "below its floor",
		},
		{
			name:    "max tier not in order",
			mutate:  func(e *OperatingEnvelope) { e.MaxTier = "cosmic" },
			wantErr: "not in the tier order",
		},
		{
			name: "max tier without order",
			mutate: func(e *OperatingEnvelope) {
				e.Tiers = nil
				e.MaxTier = "elevated"
			},
			wantErr: "without a tier order",
		},
		{
			name: "blank tier",
			mutate: func(e *OperatingEnvelope) {
				e.Tiers = []string{"routine", ""}
				e.MaxTier = "routine"
			},
			wantErr: "is blank",
		},
		{
			name: "duplicate tier",
			mutate: func(e *OperatingEnvelope) {
				e.Tiers = []string{"routine", "elevated", "routine"}
			},
			wantErr: "appears twice",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			envelope := testEnvelope()
			tc.mutate(&envelope)
			_, err := NewEvaluator(envelope)
			if err == nil {
				t.Fatal("expected a construction error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestNewEvaluator_ReportsEveryProblem(t *testing.T) {
	envelope := testEnvelope()
	envelope.Behavior = "maybe"
	envelope.ScarcityLimit = 2
	envelope.CostAlpha = -3

	_, err := NewEvaluator(envelope)
	if err == nil {
		t.Fatal("expected a construction error")
	}
	for _, fragment := range []string{`boundary "escrow-release"`, "not AUTO_ALLOW", "outside [0,1]", "negative"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %q", err, fragment)
		}
	}
}

func TestNewEvaluator_MinimalEnvelope(t *testing.T) {
	// No floors, no lists, no tiers: everything is unconstrained and
	// the only required declarations are behavior and cost shape.
	evaluator := testEvaluator(t, OperatingEnvelope{
		Name:     "open",
		CostBase: 1,
		Behavior: AutoAllow,
	})

	result := evaluator.Evaluate(Action{Name: "anything", Tier: "unheard-of"}, nil)
	if !result.Inside || result.Scarcity != 0 || result.Cost != 1 || len(result.Violations) != 0 {
		t.Fatalf("minimal envelope rejected a benign action: %+v", result)
	}
}

func TestEvaluate_ScarcityIsMeanDeficit(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	// credits at half its floor, trust exactly at its floor.
	result := evaluator.Evaluate(testAction(), ResourceState{"credits": 50, "trust": 0.5})
	if result.Scarcity != 0.25 {
		t.Fatalf("scarcity = %g, want 0.25", result.Scarcity)
	}
	wantCost := math.Pow(4, 2*0.25*0.25)
	if math.Abs(result.Cost-wantCost) > 1e-12 {
		t.Fatalf("cost = %g, want %g", result.Cost, wantCost)
	}
	if !result.Inside {
		t.Fatalf("scarcity 0.25 is under the 0.4 limit, expected inside: %+v", result)
	}
}

func TestEvaluate_MissingResourceIsFullyDeficient(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	// credits unreported: its whole floor counts as deficit.
	result := evaluator.Evaluate(testAction(), ResourceState{"trust": 0.9})
	if result.Scarcity != 0.5 {
		t.Fatalf("scarcity = %g, want 0.5", result.Scarcity)
	}
	if result.Inside {
		t.Fatal("scarcity 0.5 exceeds the 0.4 limit, expected outside")
	}
	if len(result.Violations) != 0 {
		t.Fatalf("a scarcity breach is not a named violation, got %v", result.Violations)
	}
}

func TestEvaluate_DeficitBounds(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	t.Run("overdrawn clamps to one", func(t *testing.T) {
		result := evaluator.Evaluate(testAction(), ResourceState{"credits": -50})
		// credits clamps to 1 despite the 1.5 raw deficit, trust is
		// absent, so the mean stays exactly 1.
		if result.Scarcity != 1 {
			t.Fatalf("scarcity = %g, want 1", result.Scarcity)
		}
		if want := math.Pow(4, 2); result.Cost != want {
			t.Fatalf("cost = %g, want %g", result.Cost, want)
		}
	})

	t.Run("surplus does not offset", func(t *testing.T) {
		result := evaluator.Evaluate(testAction(), ResourceState{"credits": 10000, "trust": 50})
		if result.Scarcity != 0 {
			t.Fatalf("scarcity = %g, want 0", result.Scarcity)
		}
	})
}

func TestEvaluate_CeilingViolations(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	t.Run("overshoot is named", func(t *testing.T) {
		state := testState()
		state["pending"] = 9
		result := evaluator.Evaluate(testAction(), state)
		if result.Inside {
			t.Fatal("expected outside on ceiling overshoot")
		}
		want := []string{"ceiling: pending at 9 exceeds 8"}
		if !slices.Equal(result.Violations, want) {
			t.Fatalf("violations = %v, want %v", result.Violations, want)
		}
		if result.Scarcity != 0 {
			t.Fatalf("ceiling overshoot moved scarcity to %g", result.Scarcity)
		}
	})

	t.Run("exactly at ceiling passes", func(t *testing.T) {
		state := testState()
		state["pending"] = 8
		if result := evaluator.Evaluate(testAction(), state); !result.Inside {
			t.Fatalf("expected inside at the ceiling, got %+v", result)
		}
	})

	t.Run("absent resource has no ceiling", func(t *testing.T) {
		state := testState()
		delete(state, "pending")
		if result := evaluator.Evaluate(testAction(), state); !result.Inside {
			t.Fatalf("expected inside without the resource, got %+v", result)
		}
	})
}

func TestEvaluate_CategoricalViolations(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	cases := []struct {
		name   string
		mutate func(a *Action)
		want   string
	}{
		{
			name:   "phase",
			mutate: func(a *Action) { a.Phase = "observation" },
			want:   `phase: "observation" not allowed`,
		},
		{
			name:   "agent",
			mutate: func(a *Action) { a.Agent = "agent/rogue" },
			want:   `agent: "agent/rogue" not allowed`,
		},
		{
			name:   "capability",
			mutate: func(a *Action) { a.Capability = "ledger.burn" },
			want:   `capability: "ledger.burn" not allowed`,
		},
		{
			name:   "target",
			mutate: func(a *Action) { a.Target = "ledger/main" },
			want:   `target: "ledger/main" not allowed`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action := testAction()
			tc.mutate(&action)
			result := evaluator.Evaluate(action, testState())
			if result.Inside {
				t.Fatal("expected outside")
			}
			if want := []string{tc.want}; !slices.Equal(result.Violations, want) {
				t.Fatalf("violations = %v, want %v", result.Violations, want)
			}
		})
	}
}

func TestEvaluate_AllowlistPatterns(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	action := testAction()
	action.Agent = "agent/ops/webhook"
	action.Target = "vault/east-2"
	if result := evaluator.Evaluate(action, testState()); !result.Inside {
		t.Fatalf("prefix patterns should admit the action, got %+v", result)
	}

	action.Target = "vault" // prefix "vault/" does not cover the bare name
	if result := evaluator.Evaluate(action, testState()); result.Inside {
		t.Fatal("bare name slipped past a prefix pattern")
	}
}

func TestEvaluate_TierCeiling(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	t.Run("at and below maximum", func(t *testing.T) {
		for _, tier := range []string{"routine", "elevated"} {
			action := testAction()
			action.Tier = tier
			if result := evaluator.Evaluate(action, testState()); !result.Inside {
				t.Fatalf("tier %q should be admissible, got %+v", tier, result)
			}
		}
	})

	t.Run("above maximum", func(t *testing.T) {
		action := testAction()
		action.Tier = "critical"
		result := evaluator.Evaluate(action, testState())
		if want := []string{`tier: "critical" exceeds maximum "elevated"`}; !slices.Equal(result.Violations, want) {
			t.Fatalf("violations = %v, want %v", result.Violations, want)
		}
	})

	t.Run("unknown tier", func(t *testing.T) {
		action := testAction()
		action.Tier = "experimental"
		result := evaluator.Evaluate(action, testState())
		if want := []string{`tier: "experimental" is not in the tier order`}; !slices.Equal(result.Violations, want) {
			t.Fatalf("violations = %v, want %v", result.Violations, want)
		}
	})

	t.Run("blank tier with a declared order", func(t *testing.T) {
		action := testAction()
		action.Tier = ""
		if result := evaluator.Evaluate(action, testState()); result.Inside {
			t.Fatal("blank tier must not bypass a declared order")
		}
	})
}

func TestEvaluate_ScarcityBreachFlipsWithoutViolation(t *testing.T) {
	envelope := testEnvelope()
	envelope.ScarcityLimit = 0.2
	evaluator := testEvaluator(t, envelope)

	state := ResourceState{"credits": 50, "trust": 0.5} // scarcity 0.25
	result := evaluator.Evaluate(testAction(), state)
	if result.Inside {
		t.Fatal("expected outside above the scarcity limit")
	}
	if len(result.Violations) != 0 {
		t.Fatalf("scarcity breach produced violations: %v", result.Violations)
	}

	envelope.ScarcityLimit = 0.25 // the limit is inclusive
	if result := testEvaluator(t, envelope).Evaluate(testAction(), state); !result.Inside {
		t.Fatalf("scarcity exactly at the limit should pass, got %+v", result)
	}
}

func TestEvaluate_ViolationOrderIsDeterministic(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	action := Action{
		Name:       "escrow/release",
		Phase:      "observation",
		Agent:      "agent/rogue",
		Capability: "ledger.burn",
		Target:     "ledger/main",
		Tier:       "experimental",
	}
	state := testState()
	state["pending"] = 9

	want := []string{
		"ceiling: pending at 9 exceeds 8",
		`phase: "observation" not allowed`,
		`agent: "agent/rogue" not allowed`,
		`capability: "ledger.burn" not allowed`,
		`target: "ledger/main" not allowed`,
		`tier: "experimental" is not in the tier order`,
	}
	first := evaluator.Evaluate(action, state)
	if !slices.Equal(first.Violations, want) {
		t.Fatalf("violations = %v, want %v", first.Violations, want)
	}
	for range 3 {
		if again := evaluator.Evaluate(action, state); !reflect.DeepEqual(again, first) {
			t.Fatalf("evaluation is not idempotent: %+v vs %+v", again, first)
		}
	}
}

func TestEvaluate_CostGrowsWithScarcity(t *testing.T) {
	evaluator := testEvaluator(t, testEnvelope())

	states := []ResourceState{
		{"credits": 250, "trust": 0.9}, // scarcity 0
		{"credits": 50, "trust": 0.5},  // scarcity 0.25
		{"credits": 50, "trust": 0.25}, // scarcity 0.5
		{},                             // scarcity 1
	}
	previous := 0.0
	for i, state := range states {
		result := evaluator.Evaluate(testAction(), state)
		if result.Cost < 1 {
			t.Fatalf("state %d: cost %g fell below 1", i, result.Cost)
		}
		if result.Cost <= previous {
			t.Fatalf("state %d: cost %g did not grow past %g", i, result.Cost, previous)
		}
		previous = result.Cost
	}
	if want := 16.0; previous != want {
		t.Fatalf("fully scarce cost = %g, want base^alpha = %g", previous, want)
	}
}

func TestNewEvaluator_CopiesEnvelope(t *testing.T) {
	envelope := testEnvelope()
	evaluator := testEvaluator(t, envelope)

	before := evaluator.Evaluate(testAction(), testState())

	// Mutating the caller's envelope after construction must not
	// change what the evaluator enforces.
	envelope.Floors["credits"] = 1e9
	envelope.Phases[0] = "never"
	envelope.Tiers[1] = "renamed"

	after := evaluator.Evaluate(testAction(), testState())
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("evaluator observed caller mutations: %+v vs %+v", before, after)
	}
}

func TestEvaluator_Accessors(t *testing.T) {
	envelope := testEnvelope()
	evaluator := testEvaluator(t, envelope)

	if got := evaluator.Name(); got != envelope.Name {
		t.Fatalf("Name() = %q, want %q", got, envelope.Name)
	}
	if got := evaluator.Behavior(); got != Quarantine {
		t.Fatalf("Behavior() = %q, want %q", got, Quarantine)
	}
	if got := evaluator.Recovery(); got != envelope.Recovery {
		t.Fatalf("Recovery() = %+v, want %+v", got, envelope.Recovery)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	evaluator, err := NewEvaluator(testEnvelope())
	if err != nil {
		b.Fatal(err)
	}
	action := testAction()
	state := testState()
	for b.Loop() {
		evaluator.Evaluate(action, state)
	}
}
