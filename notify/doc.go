// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify defines the typed notifications the gateway core emits
// and the ways they reach subscribers.
//
// Every handled gateway event produces exactly one [Notification];
// connection lifecycle changes produce [Connected] and [Disconnected].
// Notifications carry only identifying data. Subscribers read full
// entities from the cache.
//
// [Bus] delivers each notification synchronously, in emission order,
// to every subscribed [Handler]. It runs on the gateway client's event
// loop goroutine, so a handler that blocks stalls the connection.
// [Recorder] appends notifications to a CBOR sequence that
// [ReadRecording] replays. [Relay] republishes them to NATS.
package notify
