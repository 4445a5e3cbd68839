// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/switchboard/lib/clock"
	"github.com/bureau-foundation/switchboard/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBackoff(t *testing.T) {
	policy := backoff{base: time.Second, max: 30 * time.Second}
	want := []time.Duration{
		0,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for attempt, expected := range want {
		if got := policy.next(); got != expected {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, got, expected)
		}
	}
	policy.reset()
	if got := policy.next(); got != 0 {
		t.Errorf("first delay after reset = %v, want 0", got)
	}
}

func TestHeartbeatMissedAck(t *testing.T) {
	fake := clock.Fake(epoch)
	monitor := heartbeat{clock: fake}

	if monitor.beat() {
		t.Fatal("first beat reported a missed ack")
	}
	fake.Advance(250 * time.Millisecond)
	monitor.ack()
	if monitor.latency != 250*time.Millisecond {
		t.Errorf("latency = %v, want 250ms", monitor.latency)
	}
	if monitor.beat() {
		t.Fatal("beat after ack reported a missed ack")
	}
	if !monitor.beat() {
		t.Fatal("beat without ack did not report a missed ack")
	}
}

func TestHeartbeatTicksOnClock(t *testing.T) {
	fake := clock.Fake(epoch)
	monitor := heartbeat{clock: fake}
	ticks := make(chan struct{}, 4)
	monitor.arm(context.Background(), time.Second, func() { ticks <- struct{}{} })
	defer monitor.disarm()

	for range 3 {
		fake.WaitForWaiters(1)
		fake.Advance(time.Second)
		testutil.RequireReceive(t, ticks, 5*time.Second, "waiting for heartbeat tick")
	}

	monitor.disarm()
	if fake.Pending() != 0 {
		t.Errorf("Pending() after disarm = %d, want 0", fake.Pending())
	}
	if monitor.armed {
		t.Error("monitor still armed after disarm")
	}
}

func TestHeartbeatFirstTickAfterFullInterval(t *testing.T) {
	fake := clock.Fake(epoch)
	monitor := heartbeat{clock: fake}
	ticks := make(chan struct{}, 1)
	monitor.arm(context.Background(), 41250*time.Millisecond, func() { ticks <- struct{}{} })
	defer monitor.disarm()

	fake.WaitForWaiters(1)
	fake.Advance(41249 * time.Millisecond)
	if fake.Pending() != 1 {
		t.Fatalf("Pending() before the interval = %d, want 1", fake.Pending())
	}
	testutil.RequireEmpty(t, ticks, "before the interval")
	fake.Advance(time.Millisecond)
	testutil.RequireReceive(t, ticks, 5*time.Second, "waiting for the first tick")
}

func TestHeartbeatStopsWithParentContext(t *testing.T) {
	fake := clock.Fake(epoch)
	monitor := heartbeat{clock: fake}
	ctx, cancel := context.WithCancel(context.Background())
	monitor.arm(ctx, time.Second, func() {})
	done := monitor.done
	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "ticker exits on parent cancellation")
	monitor.disarm()
}

func TestInboxOrder(t *testing.T) {
	box := newInbox()
	for generation := range uint64(5) {
		box.post(item{kind: itemFrame, generation: generation})
	}
	testutil.RequireReceive(t, box.ready(), time.Second, "inbox signalled")
	for want := range uint64(3) {
		next, ok := box.take()
		if !ok || next.generation != want {
			t.Fatalf("take() = %d, %v; want %d", next.generation, ok, want)
		}
	}
	rest := box.drain()
	if len(rest) != 2 || rest[0].generation != 3 || rest[1].generation != 4 {
		t.Fatalf("drain() = %+v", rest)
	}
	if _, ok := box.take(); ok {
		t.Fatal("take() on an empty inbox succeeded")
	}
	if box.length() != 0 {
		t.Fatalf("length() = %d, want 0", box.length())
	}
}

func TestStatusString(t *testing.T) {
	if got := StatusAwaitingHello.String(); got != "awaiting_hello" {
		t.Errorf("StatusAwaitingHello.String() = %q", got)
	}
	if got := Status(42).String(); got != "unknown" {
		t.Errorf("Status(42).String() = %q", got)
	}
}

func TestSessionStateResumable(t *testing.T) {
	state := emptySession()
	if state.Resumable() {
		t.Fatal("empty session is resumable")
	}
	state.SessionID = "abc"
	if state.Resumable() {
		t.Fatal("session without a sequence is resumable")
	}
	state.LastSequence = 0
	if !state.Resumable() {
		t.Fatal("session with id and sequence is not resumable")
	}
	state.clearSession()
	if state.Resumable() || state.LastSequence != noSequence {
		t.Fatalf("cleared session = %+v", state)
	}
}

func TestConnectURL(t *testing.T) {
	tests := []struct {
		name      string
		initial   string
		compress  bool
		resume    string
		requested bool
		want      string
	}{
		{
			name:    "initial without resume",
			initial: "wss://gateway.example/?v=9&encoding=json",
			want:    "wss://gateway.example/?v=9&encoding=json",
		},
		{
			name:      "resume keeps the initial query",
			initial:   "wss://gateway.example/?v=9&encoding=json",
			resume:    "wss://resume.example",
			requested: true,
			want:      "wss://resume.example/?v=9&encoding=json",
		},
		{
			name:      "resume not requested",
			initial:   "wss://gateway.example/?v=9",
			resume:    "wss://resume.example",
			requested: false,
			want:      "wss://gateway.example/?v=9",
		},
		{
			name:      "compression applies to both",
			initial:   "wss://gateway.example/?v=9",
			compress:  true,
			resume:    "wss://resume.example/gw",
			requested: true,
			want:      "wss://resume.example/gw?compress=zlib-stream&v=9",
		},
		{
			name:      "unusable resume URL",
			initial:   "wss://gateway.example/?v=9",
			resume:    "not a url",
			requested: true,
			want:      "wss://gateway.example/?v=9",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, err := New(Config{URL: test.initial, Token: "token", Compress: test.compress})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			client.state.ResumeGatewayURL = test.resume
			client.resumeRequested = test.requested
			if got := client.connectURL(); got != test.want {
				t.Errorf("connectURL() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "missing token", config: Config{URL: "wss://gateway.example/"}},
		{name: "wrong scheme", config: Config{URL: "https://gateway.example/", Token: "token"}},
		{name: "unparseable URL", config: Config{URL: "ws://[::1", Token: "token"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := New(test.config); err == nil {
				t.Fatal("New succeeded")
			}
		})
	}
}
