// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"encoding/hex"

	"github.com/warrant-foundation/warrant/lib/codec"
	"github.com/warrant-foundation/warrant/lib/keyset"
)

// noiseSize is the number of noise bytes in every failure response.
// Fixed so that deny and quarantine responses — and failures at
// different stages — are the same size on the wire.
const noiseSize = 32

// Noise is the failure response. Identical shape for every rejected
// envelope: an error marker and hex noise bytes. The bytes are a
// deterministic keyed PRF of the failure, so a probing caller gets
// the same response for the same probe forever, and unrelated noise
// for any variation — no oracle either way.
type Noise struct {
	Error string `json:"error"`
	Data  string `json:"data"`
}

// noiseContext is the PRF input: the failure stage and the envelope's
// signing base. Tamper variants of one envelope have different bases,
// so their noise differs; replaying one bad envelope reproduces its
// noise exactly.
type noiseContext struct {
	Stage int    `cbor:"1,keyasint"`
	Base  []byte `cbor:"2,keyasint"`
}

// synthesizeNoise builds the failure response for an envelope
// rejected at the given stage. The base may be nil when the envelope
// was too malformed to serialize.
func synthesizeNoise(keys *keyset.KeySet, stage Stage, base []byte) *Noise {
	context, err := codec.Marshal(noiseContext{Stage: int(stage), Base: base})
	if err != nil {
		// Marshal of two concrete fields cannot fail; guard anyway so
		// a codec regression cannot take down the failure path.
		context = []byte{byte(stage)}
	}

	data, err := keys.Noise(context, noiseSize)
	if err != nil {
		// Noise derivation fails only on a closed keyset. The response
		// must still be constant-shaped.
		data = make([]byte, noiseSize)
	}

	return &Noise{
		Error: "NOISE",
		Data:  hex.EncodeToString(data),
	}
}
