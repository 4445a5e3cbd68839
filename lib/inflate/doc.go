// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inflate decodes the gateway's zlib-stream transport
// compression.
//
// With transport compression enabled the server runs one zlib
// compressor for the lifetime of a connection and sync-flushes it after
// every gateway message. Each message therefore ends with the four byte
// flush marker 00 00 FF FF, and every message depends on the
// decompressor state left behind by all earlier messages. A message may
// arrive split across several WebSocket frames; frames that do not end
// with the marker are held until one does.
//
// [Decompressor] keeps that state across calls. It is not safe for
// concurrent use: the gateway client owns one per connection and calls
// it only from its event loop. [Decompressor.Reset] must be called
// before the first frame of every new connection, because the server
// starts a fresh compressor each time it accepts one.
package inflate
