// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/switchboard/lib/clock"
	"github.com/bureau-foundation/switchboard/lib/testutil"
	"github.com/bureau-foundation/switchboard/notify"
	"github.com/bureau-foundation/switchboard/transport"
)

const (
	testTimeout = 5 * time.Second
	testURL     = "wss://gateway.example/?v=9&encoding=json"
	resumeURL   = "wss://resume.example"
)

// fakeServer accepts the client's dials over in-memory pipes.
type fakeServer struct {
	t     *testing.T
	conns chan *serverConn
	fail  chan error
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{t: t, conns: make(chan *serverConn, 16), fail: make(chan error, 16)}
}

func (s *fakeServer) dial(ctx context.Context, url string) (transport.Conn, error) {
	select {
	case err := <-s.fail:
		return nil, err
	default:
	}
	client, server := transport.Pipe()
	conn := &serverConn{
		t:        s.t,
		url:      url,
		pipe:     server,
		received: make(chan []byte, 64),
		closed:   make(chan *transport.CloseError, 1),
	}
	go conn.read()
	s.conns <- conn
	return client, nil
}

func (s *fakeServer) accept() *serverConn {
	s.t.Helper()
	return testutil.RequireReceive(s.t, s.conns, testTimeout, "waiting for the client to dial")
}

// serverConn is the server end of one client connection.
type serverConn struct {
	t        *testing.T
	url      string
	pipe     *transport.PipeConn
	received chan []byte
	closed   chan *transport.CloseError
}

func (c *serverConn) read() {
	for {
		_, data, err := c.pipe.ReadMessage()
		if err != nil {
			var closeError *transport.CloseError
			errors.As(err, &closeError)
			c.closed <- closeError
			return
		}
		c.received <- data
	}
}

func (c *serverConn) sendRaw(messageType transport.MessageType, data []byte) {
	c.t.Helper()
	if err := c.pipe.WriteMessage(messageType, data); err != nil {
		c.t.Fatalf("server write: %v", err)
	}
}

func (c *serverConn) send(op Opcode, payload any) {
	c.t.Helper()
	data, err := command(op, payload)
	if err != nil {
		c.t.Fatalf("encoding op %v: %v", op, err)
	}
	c.sendRaw(transport.TextMessage, data)
}

func (c *serverConn) dispatch(event string, sequence int64, payload any) {
	c.t.Helper()
	c.sendRaw(transport.TextMessage, dispatchFrame(c.t, event, sequence, payload))
}

func dispatchFrame(t *testing.T, event string, sequence int64, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encoding %s: %v", event, err)
	}
	data, err := Envelope{Op: OpDispatch, Sequence: &sequence, EventName: event, Payload: raw}.Encode()
	if err != nil {
		t.Fatalf("encoding %s envelope: %v", event, err)
	}
	return data
}

func (c *serverConn) hello(interval time.Duration) {
	c.t.Helper()
	c.send(OpHello, map[string]int64{"heartbeat_interval": interval.Milliseconds()})
}

// expect reads the client's next command and checks its opcode.
func (c *serverConn) expect(op Opcode) json.RawMessage {
	c.t.Helper()
	data := testutil.RequireReceive(c.t, c.received, testTimeout, "waiting for %v from the client", op)
	command := decodeCommand(c.t, data)
	if command.Op != op {
		c.t.Fatalf("client sent %v (%s), want %v", command.Op, data, op)
	}
	return command.Payload
}

// expectClosed waits for the client to close the connection and
// returns the close code it sent.
func (c *serverConn) expectClosed() int {
	c.t.Helper()
	closeError := testutil.RequireReceive(c.t, c.closed, testTimeout, "waiting for the client to close")
	if closeError == nil {
		c.t.Fatal("connection ended without a close frame")
	}
	return closeError.Code
}

// notificationChannel collects notifications for assertions.
type notificationChannel chan notify.Notification

func (n notificationChannel) Emit(notification notify.Notification) { n <- notification }

// harness is a started client wired to a fake server.
type harness struct {
	t             *testing.T
	client        *Client
	server        *fakeServer
	clock         *clock.FakeClock
	dispatches    chan Envelope
	notifications notificationChannel
}

func newHarness(t *testing.T, configure func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:             t,
		server:        newFakeServer(t),
		clock:         clock.Fake(epoch),
		dispatches:    make(chan Envelope, 64),
		notifications: make(notificationChannel, 64),
	}
	config := Config{
		URL:        testURL,
		Token:      "secret-token",
		Properties: IdentifyProperties{OS: "linux", Browser: "switchboard", Device: "switchboard"},
		Dialer:     transport.DialerFunc(h.server.dial),
		Dispatcher: DispatcherFunc(func(envelope Envelope) { h.dispatches <- envelope }),
		Notifier:   h.notifications,
		Clock:      h.clock,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if configure != nil {
		configure(&config)
	}
	client, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.client = client
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(client.Stop)
	return h
}

func (h *harness) nextDispatch() Envelope {
	h.t.Helper()
	return testutil.RequireReceive(h.t, h.dispatches, testTimeout, "waiting for a dispatch")
}

func (h *harness) nextNotification() notify.Notification {
	h.t.Helper()
	return testutil.RequireReceive(h.t, (<-chan notify.Notification)(h.notifications), testTimeout, "waiting for a notification")
}

func (h *harness) expectDisconnected(reconnecting bool) notify.Disconnected {
	h.t.Helper()
	disconnected, ok := h.nextNotification().(notify.Disconnected)
	if !ok {
		h.t.Fatal("notification is not Disconnected")
	}
	if disconnected.Reconnecting != reconnecting {
		h.t.Fatalf("Disconnected.Reconnecting = %v, want %v", disconnected.Reconnecting, reconnecting)
	}
	return disconnected
}

func (h *harness) waitForStatus(status Status) {
	h.t.Helper()
	testutil.RequireEventually(h.t, func() bool { return h.client.Status() == status },
		testTimeout, "waiting for status %v", status)
}

// establish runs a fresh identify handshake and returns the
// connection with READY delivered at sequence 1.
func (h *harness) establish(sessionID string) *serverConn {
	h.t.Helper()
	conn := h.server.accept()
	conn.hello(41250 * time.Millisecond)
	conn.expect(OpIdentify)
	conn.dispatch(EventReady, 1, map[string]any{
		"session_id":         sessionID,
		"resume_gateway_url": resumeURL,
		"user":               map[string]any{"id": "100"},
	})
	if ready := h.nextDispatch(); ready.EventName != EventReady {
		h.t.Fatalf("first dispatch = %s, want READY", ready.EventName)
	}
	return conn
}
