// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

type wallClock struct{}

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (wallClock) NewTimer(d time.Duration) *Timer {
	underlying := time.NewTimer(d)
	return &Timer{C: underlying.C, stop: underlying.Stop}
}
