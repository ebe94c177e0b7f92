// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces nonce keys so a shared redis can also serve
// other tenants without collision.
const keyPrefix = "warrant:nonce:"

// defaultOpTimeout bounds each redis round trip. A verifier stuck
// behind a dead redis must fall through to DENY quickly rather than
// hang the caller.
const defaultOpTimeout = 2 * time.Second

// RedisCache is a shared nonce cache backed by redis SET NX PX: the
// insert and the existence test are a single atomic command, so the
// exactly-once guarantee holds across any number of verifier
// processes. Expiry is enforced by redis key TTLs; the at parameter of
// CheckAndStore is unused here, because a shared store cannot trust
// per-caller clocks.
//
// Unlike a single-process cache, redis can be unreachable. RedisCache
// fails closed: an errored round trip reports fresh=false with the
// error, and the verifier denies.
type RedisCache struct {
	client    *redis.Client
	window    time.Duration
	opTimeout time.Duration
}

// NewRedis creates a RedisCache retaining nonces for the given window.
// Size the window as freshness window plus clock-skew tolerance, the
// same horizon as NewMemory. Panics if window is not positive.
func NewRedis(client *redis.Client, window time.Duration) *RedisCache {
	if window <= 0 {
		panic("replay: retention window must be positive")
	}
	return &RedisCache{
		client:    client,
		window:    window,
		opTimeout: defaultOpTimeout,
	}
}

// CheckAndStore implements Cache.
func (c *RedisCache) CheckAndStore(nonce []byte, _ time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()

	key := keyPrefix + hex.EncodeToString(nonce)
	fresh, err := c.client.SetNX(ctx, key, 1, c.window).Result()
	if err != nil {
		return false, fmt.Errorf("replay: redis SETNX: %w", err)
	}
	return fresh, nil
}
