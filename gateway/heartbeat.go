// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"time"

	"github.com/bureau-foundation/switchboard/lib/clock"
)

// heartbeat is the liveness monitor for one connection. Its flags are
// owned by the event loop; only the ticker goroutine runs elsewhere,
// and it touches nothing but its own timer and the tick callback.
type heartbeat struct {
	clock clock.Clock

	armed       bool
	awaitingAck bool
	interval    time.Duration
	sentAt      time.Time
	latency     time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// arm starts the ticker. The first tick fires one interval from now.
// The monitor starts as if an ack had just arrived.
func (h *heartbeat) arm(parent context.Context, interval time.Duration, tick func()) {
	h.disarm()

	ctx, cancel := context.WithCancel(parent)
	h.armed = true
	h.awaitingAck = false
	h.interval = interval
	h.cancel = cancel
	h.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for {
			timer := h.clock.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				tick()
			}
		}
	}(h.done)
}

// beat records that a heartbeat is being sent. It reports true when
// the previous heartbeat was never acknowledged.
func (h *heartbeat) beat() (missed bool) {
	missed = h.awaitingAck
	h.awaitingAck = true
	h.sentAt = h.clock.Now()
	return missed
}

// ack records a heartbeat acknowledgement.
func (h *heartbeat) ack() {
	if h.awaitingAck && !h.sentAt.IsZero() {
		h.latency = h.clock.Now().Sub(h.sentAt)
	}
	h.awaitingAck = false
}

// disarm stops the ticker and waits for its goroutine to exit. The
// ticker's wait is interruptible, so this returns promptly.
func (h *heartbeat) disarm() {
	if h.cancel != nil {
		h.cancel()
		<-h.done
		h.cancel = nil
		h.done = nil
	}
	h.armed = false
	h.awaitingAck = false
}
