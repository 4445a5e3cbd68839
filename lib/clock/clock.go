// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for the heartbeat and reconnect timers.
type Clock interface {
	Now() time.Time

	// After delivers once d has passed; immediately when d <= 0.
	After(d time.Duration) <-chan time.Time

	// NewTimer is After with cancellation. A timer that will not be
	// waited on must be stopped, or Fake counts it in Pending.
	NewTimer(d time.Duration) *Timer
}

// Timer delivers its fire time on C, which has a buffer of one.
type Timer struct {
	C <-chan time.Time

	stop func() bool
}

// Stop cancels the timer, reporting false if it had already fired or
// been stopped.
func (t *Timer) Stop() bool { return t.stop() }
