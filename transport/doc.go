// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the gateway client's view of a WebSocket.
//
// [Dialer] opens a [Conn] to a gateway URL. A Conn is message oriented:
// ReadMessage returns one whole text or binary message and
// WriteMessage sends one. Close sends a close frame carrying a code,
// which is how the client tells the server whether to keep the session
// resumable (1012) or discard it (1000).
//
// [WebSocketDialer] is the production Dialer, built on
// gorilla/websocket. [Pipe] returns a connected in-memory pair for
// tests that drive the server side by hand.
//
// A peer's close frame surfaces from ReadMessage as a [*CloseError].
// [CloseCodeOf] extracts its code and [IsExpectedClose] recognizes
// the errors that ordinary teardown produces.
package transport
