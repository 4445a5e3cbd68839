// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// closeWriteTimeout bounds how long Close waits to send its close
// frame to an unresponsive peer.
const closeWriteTimeout = time.Second

// WebSocketDialer dials gateway URLs with gorilla/websocket.
type WebSocketDialer struct {
	// Dialer is the underlying dialer. Nil selects a copy of
	// websocket.DefaultDialer with DefaultHandshakeTimeout.
	Dialer *websocket.Dialer

	// Header is sent with every handshake request (User-Agent,
	// Origin).
	Header http.Header

	// ReadLimit caps the size of one inbound message. Zero leaves
	// gorilla's default (no limit).
	ReadLimit int64
}

// Dial opens a WebSocket to url.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		defaultDialer := *websocket.DefaultDialer
		defaultDialer.HandshakeTimeout = DefaultHandshakeTimeout
		dialer = &defaultDialer
	}

	conn, response, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("transport: dialing %s: %w (HTTP %d)", url, err, response.StatusCode)
		}
		return nil, fmt.Errorf("transport: dialing %s: %w", url, err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return &webSocketConn{conn: conn}, nil
}

// webSocketConn adapts a gorilla connection to Conn.
type webSocketConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (c *webSocketConn) ReadMessage() (MessageType, []byte, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		var closeError *websocket.CloseError
		if errors.As(err, &closeError) {
			return 0, nil, &CloseError{Code: closeError.Code, Reason: closeError.Text}
		}
		return 0, nil, err
	}
	return MessageType(messageType), data, nil
}

func (c *webSocketConn) WriteMessage(messageType MessageType, data []byte) error {
	return c.conn.WriteMessage(int(messageType), data)
}

// Close sends a close frame and closes the socket. gorilla allows
// WriteControl and Close concurrently with the reader and writer.
func (c *webSocketConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(code, reason)
		deadline := time.Now().Add(closeWriteTimeout)
		if err := c.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil &&
			!errors.Is(err, websocket.ErrCloseSent) && !IsExpectedClose(err) {
			c.closeErr = fmt.Errorf("transport: sending close frame: %w", err)
		}
		if err := c.conn.Close(); err != nil && c.closeErr == nil && !IsExpectedClose(err) {
			c.closeErr = err
		}
	})
	return c.closeErr
}
