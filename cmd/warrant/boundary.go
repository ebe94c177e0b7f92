// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/warrant-foundation/warrant/lib/boundary"
)

func runBoundary(args []string) error {
	if len(args) < 1 {
		printBoundaryUsage()
		return fmt.Errorf("boundary subcommand required")
	}
	switch args[0] {
	case "eval":
		return runBoundaryEval(args[1:])
	case "-h", "--help", "help":
		printBoundaryUsage()
		return nil
	default:
		printBoundaryUsage()
		return fmt.Errorf("unknown boundary subcommand: %q", args[0])
	}
}

func printBoundaryUsage() {
	fmt.Fprintf(os.Stderr, `Usage: warrant boundary <subcommand> [flags]

Subcommands:
  eval        Evaluate an action against a named operating boundary
`)
}

// runBoundaryEval evaluates one action against a boundary from the
// policy. The Result JSON goes to stdout; an outside verdict also
// writes the boundary's behavior and recovery hints to stderr and
// exits nonzero.
func runBoundaryEval(args []string) error {
	flagSet := pflag.NewFlagSet("boundary eval", pflag.ContinueOnError)
	policyPath := flagSet.String("policy", "", "policy file (default $WARRANT_POLICY)")
	boundaryName := flagSet.String("boundary", "", "boundary name from the policy")
	actionName := flagSet.String("action", "", "action name")
	phase := flagSet.String("phase", "", "action phase")
	agent := flagSet.String("agent", "", "acting agent")
	capability := flagSet.String("capability", "", "capability the action exercises")
	target := flagSet.String("target", "", "action target")
	tier := flagSet.String("tier", "", "action risk tier")
	statePairs := flagSet.StringArray("state", nil, "resource level as name=value (repeatable)")
	statePath := flagSet.String("state-file", "", "JSON file with resource levels (name to number)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *boundaryName == "" {
		return fmt.Errorf("--boundary is required")
	}
	if *actionName == "" {
		return fmt.Errorf("--action is required")
	}

	pol, err := resolvePolicy(*policyPath)
	if err != nil {
		return err
	}
	evaluators, err := pol.Evaluators()
	if err != nil {
		return err
	}
	evaluator, ok := evaluators[*boundaryName]
	if !ok {
		names := make([]string, 0, len(evaluators))
		for name := range evaluators {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("boundary %q not in policy (have: %s)", *boundaryName, strings.Join(names, ", "))
	}

	state, err := loadResourceState(*statePath, *statePairs)
	if err != nil {
		return err
	}

	result := evaluator.Evaluate(boundary.Action{
		Name:       *actionName,
		Phase:      *phase,
		Agent:      *agent,
		Capability: *capability,
		Target:     *target,
		Tier:       *tier,
	}, state)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Inside {
		fmt.Fprintf(os.Stderr, "outside boundary %q: behavior %s\n", evaluator.Name(), evaluator.Behavior())
		recovery := evaluator.Recovery()
		if recovery.Contact != "" {
			fmt.Fprintf(os.Stderr, "  contact: %s\n", recovery.Contact)
		}
		if recovery.Runbook != "" {
			fmt.Fprintf(os.Stderr, "  runbook: %s\n", recovery.Runbook)
		}
		return fmt.Errorf("action %q is outside boundary %q", *actionName, *boundaryName)
	}
	return nil
}

// loadResourceState merges a JSON state file with name=value pairs;
// pairs win on conflict.
func loadResourceState(path string, pairs []string) (boundary.ResourceState, error) {
	state := boundary.ResourceState{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading state file: %w", err)
		}
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("state file %s: %w", path, err)
		}
	}
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("state %q is not name=value", pair)
		}
		level, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", pair, err)
		}
		state[name] = level
	}
	return state, nil
}
