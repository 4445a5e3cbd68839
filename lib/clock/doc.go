// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the gateway's
// heartbeat and reconnect timing.
//
// Components that wait take a Clock instead of calling time.Now,
// time.After or time.NewTimer directly. Production wiring passes
// Real(). Tests pass Fake(), which stands still until Advance is
// called:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	client := gateway.New(gateway.Config{Clock: fake, ...})
//	// ... start goroutines ...
//	fake.WaitForWaiters(1)          // heartbeat timer registered
//	fake.Advance(41250 * time.Millisecond)
//
// WaitForWaiters removes the race between a goroutine registering a
// timer and the test advancing past it, so tests never need
// time.Sleep for synchronization.
package clock
