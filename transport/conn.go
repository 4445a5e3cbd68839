// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// MessageType distinguishes text and binary messages. The values match
// the WebSocket opcodes.
type MessageType int

const (
	TextMessage   MessageType = 1
	BinaryMessage MessageType = 2
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Close codes used by the gateway client.
const (
	CloseNormal         = 1000
	CloseGoingAway      = 1001
	CloseAbnormal       = 1006
	CloseServiceRestart = 1012
)

// Conn is one WebSocket connection.
//
// ReadMessage must be called from a single goroutine, and so must
// WriteMessage. Close may be called from any goroutine, at any time,
// any number of times; it unblocks a pending ReadMessage.
type Conn interface {
	ReadMessage() (MessageType, []byte, error)
	WriteMessage(messageType MessageType, data []byte) error
	Close(code int, reason string) error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) { return f(ctx, url) }

// CloseError is returned by ReadMessage when the peer closed the
// connection. Code 1006 means the connection dropped without a close
// frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transport: connection closed with code %d", e.Code)
	}
	return fmt.Sprintf("transport: connection closed with code %d: %s", e.Code, e.Reason)
}

// CloseCodeOf returns the close code carried by err, if it wraps a
// CloseError.
func CloseCodeOf(err error) (int, bool) {
	var closeError *CloseError
	if errors.As(err, &closeError) {
		return closeError.Code, true
	}
	return 0, false
}

// IsExpectedClose reports whether err is an ordinary termination: a
// normal or going-away close frame, EOF, a locally closed connection,
// a broken pipe, or a reset. These need no logging above debug.
func IsExpectedClose(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := CloseCodeOf(err); ok {
		return code == CloseNormal || code == CloseGoingAway
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
