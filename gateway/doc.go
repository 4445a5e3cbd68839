// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway implements a persistent client for the real-time
// gateway: a WebSocket carrying JSON envelopes, optionally inside one
// zlib stream spanning the connection.
//
// [Client] owns the session lifecycle. It dials, waits for hello,
// identifies or resumes, keeps the connection alive with heartbeats,
// and reconnects after transport faults, server reconnect requests,
// missed heartbeat acks and session invalidation. Decoded dispatch
// envelopes are handed, in arrival order, to a [Dispatcher].
//
// # Concurrency
//
// One event loop goroutine per started Client owns the session state,
// the heartbeat state, the zlib decompressor and all calls into the
// Dispatcher. Every other goroutine hands work to the loop through the
// inbox, an unbounded queue that never blocks the producer:
//
//   - the transport reader posts each inbound message;
//   - the heartbeat ticker posts each tick;
//   - dial and retry goroutines post their results;
//   - public methods post closures and wait for them to run.
//
// Outbound frames go from the loop to a per-connection writer goroutine
// through a buffered channel. Every posted item carries the generation
// of the connection attempt it belongs to, so nothing from a torn-down
// connection (a late frame, a tick, a dial result) is ever applied to
// its successor.
//
// # Session lifecycle
//
//	Idle -> Connecting -> AwaitingHello -> Identifying|Resuming -> Connected
//	Connected -> Reconnecting -> Connecting   (op 7, missed ack, transport fault)
//	Connected -> Invalidated -> Connecting    (op 9)
//	any -> Idle                               (Stop)
//
// A reconnect closes the socket with code 1012 so the server keeps the
// session, then resumes with the retained session ID and sequence.
// Dispatches that arrive while identifying or resuming are held, and
// flushed in arrival order once the session is confirmed, so a resume
// that fails part way never advances the retained sequence.
package gateway
