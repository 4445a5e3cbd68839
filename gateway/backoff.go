// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import "time"

// backoff spaces reconnect attempts. The first attempt after a reset is
// immediate; each further consecutive attempt doubles the delay from
// base up to max.
type backoff struct {
	base     time.Duration
	max      time.Duration
	attempts int
}

func (b *backoff) next() time.Duration {
	attempt := b.attempts
	b.attempts++
	if attempt == 0 {
		return 0
	}
	delay := b.base
	for range attempt - 1 {
		delay *= 2
		if delay >= b.max {
			return b.max
		}
	}
	return min(delay, b.max)
}

func (b *backoff) reset() { b.attempts = 0 }
