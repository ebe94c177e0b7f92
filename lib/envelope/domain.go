// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import "fmt"

// Domain is the closed set of envelope domain tags. The tag names the
// protocol surface an envelope belongs to; verification rejects any
// tag not in the registry below, so adding a domain is an explicit
// registry change, never an emergent behavior.
type Domain uint8

const (
	// DomainInvalid is the zero value. Never valid on the wire.
	DomainInvalid Domain = iota

	// DomainCommand carries operational commands: the execution phase.
	DomainCommand

	// DomainConfig carries configuration changes: the control phase.
	DomainConfig

	// DomainEscrow carries key-custody material: the custody phase.
	DomainEscrow

	// DomainTelemetry carries observations: the observation phase.
	DomainTelemetry
)

// Phase is the operational phase a domain belongs to.
type Phase string

const (
	PhaseExecution   Phase = "execution"
	PhaseControl     Phase = "control"
	PhaseCustody     Phase = "custody"
	PhaseObservation Phase = "observation"
)

// domainInfo is one registry row. The registry is the single source of
// truth for domain names, phases, and trust weights — there is no
// inheritance between domains, only this lookup.
type domainInfo struct {
	name   string
	phase  Phase
	weight int
}

var domainTable = map[Domain]domainInfo{
	DomainCommand:   {name: "warrant/command", phase: PhaseExecution, weight: 2},
	DomainConfig:    {name: "warrant/config", phase: PhaseControl, weight: 3},
	DomainEscrow:    {name: "warrant/escrow", phase: PhaseCustody, weight: 4},
	DomainTelemetry: {name: "warrant/telemetry", phase: PhaseObservation, weight: 1},
}

// Valid reports whether the domain exists in the registry.
func (d Domain) Valid() bool {
	_, ok := domainTable[d]
	return ok
}

// String returns the registry name, or "invalid" for unregistered
// values.
func (d Domain) String() string {
	if info, ok := domainTable[d]; ok {
		return info.name
	}
	return "invalid"
}

// Phase returns the domain's operational phase. Empty for
// unregistered values.
func (d Domain) Phase() Phase {
	return domainTable[d].phase
}

// Weight returns the domain's trust weight. Higher weights mark
// surfaces whose envelopes warrant more scrutiny downstream (custody
// above control above execution above observation). Zero for
// unregistered values.
func (d Domain) Weight() int {
	return domainTable[d].weight
}

// ParseDomain resolves a registry name to its Domain.
func ParseDomain(name string) (Domain, error) {
	for domain, info := range domainTable {
		if info.name == name {
			return domain, nil
		}
	}
	return DomainInvalid, fmt.Errorf("envelope: unknown domain %q", name)
}

// Domains returns every registered domain. Order follows tag value.
func Domains() []Domain {
	return []Domain{DomainCommand, DomainConfig, DomainEscrow, DomainTelemetry}
}

// MarshalText implements encoding.TextMarshaler so domains serialize
// as their registry names in both JSON and CBOR. Unregistered values
// marshal as "invalid" rather than failing: the signing base must be
// computable for any envelope, however malformed, so failure noise
// stays deterministic.
func (d Domain) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names
// decode to DomainInvalid without error: the verifier's domain check
// owns the rejection, and it must see the envelope rather than a
// decode failure.
func (d *Domain) UnmarshalText(text []byte) error {
	parsed, err := ParseDomain(string(text))
	if err != nil {
		*d = DomainInvalid
		return nil
	}
	*d = parsed
	return nil
}
