// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshal_Deterministic(t *testing.T) {
	// Maps with identical contents must encode identically regardless
	// of insertion order — signatures are computed over these bytes.
	first := map[string]int{"zulu": 26, "alpha": 1, "mike": 13}
	second := map[string]int{"mike": 13, "zulu": 26, "alpha": 1}

	firstBytes, err := Marshal(first)
	if err != nil {
		t.Fatalf("Marshal(first) failed: %v", err)
	}
	secondBytes, err := Marshal(second)
	if err != nil {
		t.Fatalf("Marshal(second) failed: %v", err)
	}

	if !bytes.Equal(firstBytes, secondBytes) {
		t.Errorf("deterministic encoding violated:\n first: %x\nsecond: %x", firstBytes, secondBytes)
	}
}

func TestMarshal_RepeatedCallsIdentical(t *testing.T) {
	type signedForm struct {
		Version int               `cbor:"1,keyasint"`
		Origin  string            `cbor:"2,keyasint"`
		Attrs   map[string]string `cbor:"3,keyasint"`
	}
	value := signedForm{
		Version: 1,
		Origin:  "signer-a",
		Attrs:   map[string]string{"action": "delete", "target": "ledger"},
	}

	reference, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !bytes.Equal(reference, again) {
			t.Fatalf("repeated Marshal differs:\nref: %x\ngot: %x", reference, again)
		}
	}
}

func TestRoundTrip_Struct(t *testing.T) {
	type payload struct {
		Action string   `json:"action"`
		Count  int      `json:"count"`
		Tags   []string `json:"tags,omitempty"`
	}
	original := payload{Action: "rotate", Count: 3, Tags: []string{"a", "b"}}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded payload
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Action != original.Action || decoded.Count != original.Count {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if len(decoded.Tags) != 2 || decoded.Tags[0] != "a" || decoded.Tags[1] != "b" {
		t.Errorf("tags mismatch: got %v", decoded.Tags)
	}
}

func TestUnmarshal_AnyTargetUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "value"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Fatalf("expected nested map[string]any, got %T", outer["outer"])
	}
}

func TestWellformed(t *testing.T) {
	good, err := Marshal(map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := Wellformed(good); err != nil {
		t.Errorf("Wellformed rejected valid CBOR: %v", err)
	}

	// Keystream garbage: a truncated map header claims more pairs
	// than the data contains.
	if err := Wellformed([]byte{0xA5, 0x01}); err == nil {
		t.Error("Wellformed accepted truncated CBOR")
	}
	if err := Wellformed([]byte{}); err == nil {
		t.Error("Wellformed accepted empty input")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if notation != "[1, 2, 3]" {
		t.Errorf("Diagnose = %q, want %q", notation, "[1, 2, 3]")
	}
}
