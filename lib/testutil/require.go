// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// T is the part of testing.TB the helpers use.
type T interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed.
//
//	envelope := testutil.RequireReceive(t, dispatches, 5*time.Second, "waiting for READY")
func RequireReceive[V any](t T, ch <-chan V, timeout time.Duration, msgAndArgs ...any) V {
	t.Helper()
	var value V
	select {
	case received, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed while %s", formatMessage(msgAndArgs))
			return value
		}
		return received
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v %s", timeout, formatMessage(msgAndArgs))
		return value
	}
}

// RequireSend delivers value on ch within timeout.
func RequireSend[V any](t T, ch chan<- V, value V, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case ch <- value:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v %s", timeout, formatMessage(msgAndArgs))
	}
}

// RequireClosed waits for a signal channel to close (or deliver).
//
//	testutil.RequireClosed(t, client.Done(), 5*time.Second, "waiting for the loop to exit")
func RequireClosed(t T, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v waiting for close %s", timeout, formatMessage(msgAndArgs))
	}
}

// RequireEmpty fails if ch already holds a value. It does not wait:
// callers use it after a synchronization point past which nothing more
// may be sent.
func RequireEmpty[V any](t T, ch <-chan V, msgAndArgs ...any) {
	t.Helper()
	select {
	case value, ok := <-ch:
		if ok {
			t.Fatalf("unexpected %#v %s", value, formatMessage(msgAndArgs))
		}
	default:
	}
}

// RequireEventually polls condition every millisecond until it holds,
// failing the test after timeout. Use it only for state that cannot be
// observed through a channel.
//
//	testutil.RequireEventually(t, func() bool { return client.Status() == gateway.StatusConnected },
//		5*time.Second, "waiting for the session")
func RequireEventually(t T, condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout) //nolint:realclock test hang prevention
	for !condition() {
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatalf("condition still false after %v %s", timeout, formatMessage(msgAndArgs))
			return
		}
		time.Sleep(time.Millisecond) //nolint:realclock polling interval
	}
}

// formatMessage renders the optional message arguments: nothing, a
// plain value, or a format string with its arguments.
func formatMessage(msgAndArgs []any) string {
	switch {
	case len(msgAndArgs) == 0:
		return ""
	case len(msgAndArgs) == 1:
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
