// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the wall clock for testability. Production code
// injects Real(); tests inject Fake() with deterministic time control.
//
// The protocol core reads time in exactly two places — envelope
// sealing (timestamp) and envelope verification (freshness window) —
// so the interface carries only Now. Code that needs timers should
// take a narrower dependency than this package.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
