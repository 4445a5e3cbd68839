// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch turns gateway dispatch envelopes into cache
// mutations and notifications.
//
// A [Dispatcher] is installed as the gateway client's
// [gateway.Dispatcher]. The client calls Dispatch on its event loop
// goroutine, one envelope at a time, after the session sequence has
// already been advanced past the envelope. For every recognized event
// the Dispatcher:
//
//  1. decodes the payload (a malformed payload is logged and dropped
//     before anything is written),
//  2. applies the event to the cache inside one Begin/End transaction,
//  3. updates its own derived indices, and
//  4. emits exactly one notification.
//
// Unrecognized event names are logged at debug level and ignored: the
// server adds events faster than clients learn them.
//
// The derived indices (guild membership, messages per channel,
// reaction users, unread mentions, muted guilds and channels, joined
// threads, voice channel occupancy) are sets, so delivering the same
// envelope twice leaves them exactly as delivering it once. READY
// rebuilds them from scratch.
//
// THREAD_CREATE is ambiguous on the wire: the server sends it both when
// a thread is created and when the user gains access to an existing
// thread, and its newly_created flag is not consistently set in the
// second case. The resulting [notify.ThreadCreated] carries the
// payload's claim and whether the thread was already cached, and
// leaves the interpretation to the subscriber.
//
// A Dispatcher is not safe for concurrent use. Its accessors must be
// called from the goroutine that calls Dispatch, which for a running
// gateway client means from a notification handler.
package dispatch
