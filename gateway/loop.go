// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"net/url"
	"time"

	"github.com/bureau-foundation/switchboard/notify"
	"github.com/bureau-foundation/switchboard/transport"
)

// run is the event loop. Every mutation of session state happens here.
func (c *Client) run(control *runControl) {
	defer close(control.done)

	c.connect()
	for {
		select {
		case <-control.stopping:
			c.shutdown()
			return
		case <-c.ctx.Done():
			c.shutdown()
			return
		case <-c.inbox.ready():
			for !c.isStopping(control) {
				next, ok := c.inbox.take()
				if !ok {
					break
				}
				c.handle(next)
			}
		}
	}
}

func (c *Client) isStopping(control *runControl) bool {
	select {
	case <-control.stopping:
		return true
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

func (c *Client) handle(next item) {
	switch next.kind {
	case itemCall:
		next.call()
		return
	case itemDialResult:
		c.onDialResult(next)
		return
	case itemRetry:
		if next.generation == c.generation {
			c.connect()
		}
		return
	case itemInvalidSessionDelay:
		if next.generation == c.generation {
			c.restartAfterInvalidation()
		}
		return
	}

	// Everything else belongs to one connection and is stale once that
	// connection is gone.
	if c.conn == nil || next.generation != c.conn.generation {
		return
	}
	switch next.kind {
	case itemFrame:
		c.onFrame(next)
	case itemReadError, itemWriteError:
		c.onTransportError(next.err)
	case itemHeartbeatTick:
		c.onHeartbeatTick()
	}
}

// connect starts a dial. The result arrives as an itemDialResult.
func (c *Client) connect() {
	c.generation++
	generation := c.generation
	target := c.connectURL()
	c.state.Status = StatusConnecting
	c.decompressor.Reset()

	c.logger.Debug("connecting to gateway",
		"url", target,
		"generation", generation,
		"resume", c.resumeRequested,
	)

	ctx := c.ctx
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		conn, err := c.dialer.Dial(ctx, target)
		c.inbox.post(item{
			kind:       itemDialResult,
			generation: generation,
			conn:       conn,
			err:        err,
			url:        target,
		})
	}()
}

// connectURL picks the resume URL when resuming and the initial URL
// otherwise. The resume URL inherits the initial URL's query so the
// protocol version, encoding and compression stay the same.
func (c *Client) connectURL() string {
	if !c.resumeRequested || c.state.ResumeGatewayURL == "" {
		return c.initialURL.String()
	}
	resume, err := url.Parse(c.state.ResumeGatewayURL)
	if err != nil || resume.Host == "" {
		c.logger.Warn("ignoring unusable resume URL",
			"url", c.state.ResumeGatewayURL,
			"error", err,
		)
		return c.initialURL.String()
	}
	if resume.Path == "" {
		resume.Path = "/"
	}
	resume.RawQuery = c.initialURL.RawQuery
	return resume.String()
}

func (c *Client) onDialResult(result item) {
	if result.generation != c.generation || c.state.Status != StatusConnecting {
		if result.conn != nil {
			result.conn.Close(transport.CloseNormal, "superseded")
		}
		return
	}
	if result.err != nil {
		c.logger.Warn("gateway dial failed",
			"url", result.url,
			"generation", result.generation,
			"error", result.err,
		)
		c.state.Status = StatusReconnecting
		c.scheduleReconnect()
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	conn := &connection{
		generation: result.generation,
		transport:  result.conn,
		outbound:   make(chan []byte, c.config.OutboundBuffer),
		cancel:     cancel,
	}
	c.conn = conn
	c.state.Status = StatusAwaitingHello
	c.logger.Info("gateway connected", "url", result.url, "generation", conn.generation)

	c.workers.Add(2)
	go c.readLoop(conn)
	go c.writeLoop(ctx, conn)
}

func (c *Client) readLoop(conn *connection) {
	defer c.workers.Done()
	for {
		messageType, data, err := conn.transport.ReadMessage()
		if err != nil {
			c.inbox.post(item{kind: itemReadError, generation: conn.generation, err: err})
			return
		}
		c.inbox.post(item{
			kind:        itemFrame,
			generation:  conn.generation,
			messageType: messageType,
			data:        data,
		})
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *connection) {
	defer c.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-conn.outbound:
			if err := conn.transport.WriteMessage(transport.TextMessage, data); err != nil {
				c.inbox.post(item{kind: itemWriteError, generation: conn.generation, err: err})
				return
			}
		}
	}
}

func (c *Client) onFrame(frame item) {
	var payloads [][]byte
	if frame.messageType == transport.BinaryMessage {
		payloads = c.decompressor.Feed(frame.data)
	} else {
		payloads = [][]byte{frame.data}
	}
	for _, payload := range payloads {
		// A payload may have torn the connection down.
		if c.conn == nil || c.conn.generation != frame.generation {
			return
		}
		envelope, err := DecodeEnvelope(payload)
		if err != nil {
			c.logger.Warn("dropping malformed gateway message", "error", err)
			continue
		}
		c.handleEnvelope(envelope)
	}
}

func (c *Client) handleEnvelope(envelope Envelope) {
	switch envelope.Op {
	case OpHello:
		c.onHello(envelope)
	case OpHeartbeatAck:
		c.heartbeat.ack()
	case OpHeartbeat:
		c.sendHeartbeat()
	case OpReconnect:
		c.logger.Info("gateway requested reconnect", "session_id", c.state.SessionID)
		c.reconnect(0, "server requested reconnect")
	case OpInvalidSession:
		c.onInvalidSession()
	case OpDispatch:
		c.onDispatch(envelope)
	default:
		c.logger.Debug("ignoring unexpected opcode", "op", envelope.Op.String())
	}
}

func (c *Client) onHello(envelope Envelope) {
	if c.state.Status != StatusAwaitingHello {
		c.logger.Debug("ignoring repeated hello", "status", c.state.Status.String())
		return
	}
	var payload hello
	if err := envelope.Decode(&payload); err != nil || payload.HeartbeatInterval <= 0 {
		c.logger.Warn("dropping hello without a usable heartbeat interval", "error", err)
		return
	}

	interval := time.Duration(payload.HeartbeatInterval) * time.Millisecond
	c.state.HeartbeatInterval = interval
	generation := c.conn.generation
	c.heartbeat.arm(c.ctx, interval, func() {
		c.inbox.post(item{kind: itemHeartbeatTick, generation: generation})
	})

	if c.resumeRequested && c.state.Resumable() {
		c.state.Status = StatusResuming
		c.logger.Info("resuming session",
			"session_id", c.state.SessionID,
			"sequence", c.state.LastSequence,
		)
		c.sendCommandData(resumeCommand(Resume{
			Token:     c.config.Token,
			SessionID: c.state.SessionID,
			Sequence:  c.state.LastSequence,
		}))
		return
	}

	c.resumeRequested = false
	c.state.clearSession()
	c.state.Status = StatusIdentifying
	c.logger.Info("identifying", "generation", generation)
	c.sendCommandData(identifyCommand(Identify{
		Token:          c.config.Token,
		Properties:     c.config.Properties,
		Capabilities:   c.config.Capabilities,
		Intents:        c.config.Intents,
		Presence:       c.config.Presence,
		LargeThreshold: c.config.LargeThreshold,
	}))
}

func (c *Client) onHeartbeatTick() {
	missed := c.heartbeat.beat()
	c.sendHeartbeat()
	if missed && c.conn != nil {
		c.logger.Warn("heartbeat not acknowledged",
			"session_id", c.state.SessionID,
			"sequence", c.state.LastSequence,
		)
		c.reconnect(0, "heartbeat not acknowledged")
	}
}

func (c *Client) sendHeartbeat() {
	c.sendCommandData(heartbeatCommand(c.state.LastSequence))
}

func (c *Client) onInvalidSession() {
	c.logger.Warn("session invalidated", "session_id", c.state.SessionID)
	c.state.clearSession()
	c.state.Status = StatusInvalidated
	c.resumeRequested = false
	c.held = nil
	c.heartbeat.disarm()

	c.generation++
	c.after(c.config.InvalidSessionDelay, item{kind: itemInvalidSessionDelay, generation: c.generation})
}

func (c *Client) restartAfterInvalidation() {
	if c.teardown(transport.CloseNormal, "session invalidated") {
		c.emit(notify.Disconnected{
			Reconnecting: true,
			CloseCode:    transport.CloseNormal,
			Reason:       "session invalidated",
		})
	}
	c.connect()
}

func (c *Client) onDispatch(envelope Envelope) {
	switch c.state.Status {
	case StatusIdentifying, StatusResuming:
		switch envelope.EventName {
		case EventReady:
			c.onReady(envelope)
		case EventResumed:
			c.establish(envelope, true)
		default:
			// Held until the handshake completes; the sequence does
			// not advance for events that may never be delivered.
			c.held = append(c.held, envelope)
		}
	case StatusConnected:
		c.deliver(envelope)
	default:
		c.logger.Debug("dropping dispatch outside a session",
			"event", envelope.EventName,
			"status", c.state.Status.String(),
		)
	}
}

func (c *Client) onReady(envelope Envelope) {
	var payload ready
	if err := envelope.Decode(&payload); err != nil || payload.SessionID == "" {
		c.logger.Warn("dropping READY without a session id", "error", err)
		return
	}
	c.state.SessionID = payload.SessionID
	c.state.ResumeGatewayURL = payload.ResumeGatewayURL
	c.establish(envelope, false)
}

// establish completes a handshake: held dispatches are delivered in
// arrival order, then the READY or RESUMED envelope itself.
func (c *Client) establish(envelope Envelope, resumed bool) {
	c.state.Status = StatusConnected
	c.resumeRequested = false
	c.backoff.reset()

	held := c.held
	c.held = nil
	for _, event := range held {
		c.deliver(event)
	}
	c.deliver(envelope)

	message := "session established"
	if resumed {
		message = "session resumed"
	}
	c.logger.Info(message,
		"session_id", c.state.SessionID,
		"sequence", c.state.LastSequence,
		"replayed", len(held),
	)
}

// deliver advances the sequence and hands the envelope to the
// dispatcher. Replays at or below the last sequence are dropped.
func (c *Client) deliver(envelope Envelope) {
	if envelope.Sequence != nil {
		sequence := *envelope.Sequence
		if c.state.LastSequence != noSequence && sequence <= c.state.LastSequence {
			c.logger.Debug("dropping duplicate dispatch",
				"event", envelope.EventName,
				"sequence", sequence,
			)
			return
		}
		c.state.LastSequence = sequence
	}
	c.dispatcher.Dispatch(envelope)
}

func (c *Client) onTransportError(err error) {
	code, _ := transport.CloseCodeOf(err)
	if code == CloseInvalidSequence || code == CloseSessionTimedOut {
		c.logger.Warn("gateway closed the session", "close_code", code, "session_id", c.state.SessionID)
		c.state.clearSession()
	} else if transport.IsExpectedClose(err) {
		c.logger.Info("gateway connection closed", "close_code", code, "error", err)
	} else {
		c.logger.Warn("gateway connection lost", "close_code", code, "error", err)
	}
	c.reconnect(code, err.Error())
}

// reconnect drops the current connection, keeping the session for a
// resume when there is one, and schedules the next attempt.
func (c *Client) reconnect(code int, reason string) {
	if !c.teardown(transport.CloseServiceRestart, reason) {
		return
	}
	c.resumeRequested = c.state.SessionID != ""
	c.state.Status = StatusReconnecting
	c.emit(notify.Disconnected{Reconnecting: true, CloseCode: code, Reason: reason})
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.generation++
	delay := c.backoff.next()
	if delay <= 0 {
		c.connect()
		return
	}
	c.logger.Info("reconnecting after delay", "delay", delay, "generation", c.generation)
	c.after(delay, item{kind: itemRetry, generation: c.generation})
}

// after posts next once delay has elapsed on the client's clock,
// unless the client stops first.
func (c *Client) after(delay time.Duration, next item) {
	ctx := c.ctx
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		timer := c.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
			c.inbox.post(next)
		}
	}()
}

// teardown closes the current connection. It reports false when there
// was none.
func (c *Client) teardown(code int, reason string) bool {
	if c.conn == nil {
		return false
	}
	c.heartbeat.disarm()
	c.conn.cancel()
	if err := c.conn.transport.Close(code, reason); err != nil {
		c.logger.Debug("closing gateway connection", "error", err)
	}
	c.conn = nil
	c.decompressor.Reset()
	if len(c.held) > 0 {
		c.logger.Debug("discarding held dispatches", "count", len(c.held))
	}
	c.held = nil
	return true
}

func (c *Client) sendCommand(op Opcode, payload any) error {
	return c.sendCommandData(command(op, payload))
}

// sendCommandData queues an encoded command for the writer. A full
// queue means the writer is stuck, which is handled like a lost
// connection.
func (c *Client) sendCommandData(data []byte, err error) error {
	if err != nil {
		c.logger.Error("encoding gateway command", "error", err)
		return err
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	select {
	case c.conn.outbound <- data:
		return nil
	default:
		c.logger.Warn("outbound queue full", "generation", c.conn.generation)
		c.reconnect(0, "outbound queue full")
		return ErrNotConnected
	}
}

func (c *Client) shutdown() {
	c.cancel()
	c.heartbeat.disarm()
	if c.conn != nil {
		c.conn.cancel()
		c.conn.transport.Close(transport.CloseNormal, "client stopping")
		c.conn = nil
	}
	c.workers.Wait()
	for _, pending := range c.inbox.drain() {
		if pending.conn != nil {
			pending.conn.Close(transport.CloseNormal, "client stopping")
		}
	}

	c.decompressor.Reset()
	c.held = nil
	c.resumeRequested = false
	c.backoff.reset()
	c.state = emptySession()
	c.logger.Info("gateway client stopped")
	c.emit(notify.Disconnected{Reconnecting: false, CloseCode: transport.CloseNormal, Reason: "client stopped"})
}

func (c *Client) emit(notification notify.Notification) {
	c.notifier.Emit(notification)
}
