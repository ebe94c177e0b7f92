// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import "time"

// Cache records envelope nonces and answers whether a nonce has been
// seen before within the retention window.
type Cache interface {
	// CheckAndStore atomically tests and records a nonce. It returns
	// fresh=true if the nonce was not seen within the retention window
	// (and is now recorded), fresh=false if it was. A non-nil error
	// means the cache could not answer; callers must treat that as
	// not-fresh and deny.
	CheckAndStore(nonce []byte, at time.Time) (fresh bool, err error)
}
