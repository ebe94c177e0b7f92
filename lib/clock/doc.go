// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall-clock abstraction.
//
// Production code accepts a Clock parameter instead of calling
// time.Now directly. Real() provides standard library behavior; tests
// use Fake(), which advances only when the test says so:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	v := envelope.NewVerifier(keys, policy, cache, c)
//	// ... seal, verify ...
//	c.Advance(10 * time.Minute) // now the envelope is stale
//
// Freshness windows, replay retention, and audit timestamps all read
// through this interface, so every time-dependent protocol property
// is testable without sleeping.
package clock
