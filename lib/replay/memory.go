// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"sync"
	"time"
)

// MemoryCache is an in-process nonce cache: a mutex-protected map from
// nonce to the time it was recorded. Entries older than the retention
// window are pruned lazily during inserts, so memory stays bounded by
// the number of envelopes seen per window without a background sweeper.
type MemoryCache struct {
	mu        sync.Mutex
	window    time.Duration
	entries   map[string]time.Time
	lastPrune time.Time
}

// NewMemory creates a MemoryCache retaining nonces for the given
// window. Size the window as freshness window plus clock-skew
// tolerance. Panics if window is not positive — a zero-retention
// replay cache silently admits every replay.
func NewMemory(window time.Duration) *MemoryCache {
	if window <= 0 {
		panic("replay: retention window must be positive")
	}
	return &MemoryCache{
		window:  window,
		entries: make(map[string]time.Time),
	}
}

// CheckAndStore implements Cache. It never returns an error.
func (c *MemoryCache) CheckAndStore(nonce []byte, at time.Time) (bool, error) {
	key := string(nonce)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Amortized prune: at most one full sweep per retention window.
	if at.Sub(c.lastPrune) >= c.window {
		c.pruneLocked(at)
		c.lastPrune = at
	}

	if seenAt, exists := c.entries[key]; exists && at.Sub(seenAt) < c.window {
		return false, nil
	}

	c.entries[key] = at
	return true, nil
}

// Len returns the number of recorded nonces, including any not yet
// pruned.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Prune removes entries recorded more than a window before now.
func (c *MemoryCache) Prune(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(now)
	c.lastPrune = now
}

func (c *MemoryCache) pruneLocked(now time.Time) {
	for key, seenAt := range c.entries {
		if now.Sub(seenAt) >= c.window {
			delete(c.entries, key)
		}
	}
}
