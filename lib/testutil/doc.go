// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds the channel assertions shared by switchboard
// tests.
//
// Tests drive timing through lib/clock's fake, so a channel that never
// delivers means a bug rather than a slow machine. [RequireReceive],
// [RequireSend] and [RequireClosed] bound each wait with a wall-clock
// timeout and fail the test instead of hanging it. [RequireEmpty]
// asserts that nothing was sent, and [RequireEventually] polls state
// that is only visible through an accessor.
//
// Helpers take a [T] and report through Fatalf.
package testutil
