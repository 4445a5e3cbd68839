// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock stands still until Advance is called. It is safe for
// concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	changed *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	clock := &FakeClock{now: start}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	return c.NewTimer(d).C
}

// NewTimer fires once the clock reaches now+d. A timer with d <= 0 is
// ready on return and never counts as pending.
func (c *FakeClock) NewTimer(d time.Duration) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return &Timer{C: fire, stop: func() bool { return false }}
	}

	timer := &fakeTimer{deadline: c.now.Add(d), fire: fire}
	c.pending = append(c.pending, timer)
	c.changed.Broadcast()
	return &Timer{C: fire, stop: func() bool { return c.cancel(timer) }}
}

func (c *FakeClock) cancel(timer *fakeTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := slices.Index(c.pending, timer)
	if index < 0 {
		return false
	}
	c.pending = slices.Delete(c.pending, index, index+1)
	c.changed.Broadcast()
	return true
}

// Advance moves the clock forward by d, then fires every timer due by
// the new time, earliest deadline first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*fakeTimer
	c.pending = slices.DeleteFunc(c.pending, func(timer *fakeTimer) bool {
		if timer.deadline.After(now) {
			return false
		}
		due = append(due, timer)
		return true
	})
	c.changed.Broadcast()
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b *fakeTimer) int { return a.deadline.Compare(b.deadline) })
	for _, timer := range due {
		timer.fire <- now
	}
}

// WaitForWaiters blocks until n timers are pending. Tests call it
// before Advance so the goroutine under test has armed its timer.
func (c *FakeClock) WaitForWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
