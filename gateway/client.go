// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/bureau-foundation/switchboard/lib/clock"
	"github.com/bureau-foundation/switchboard/lib/inflate"
	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/notify"
	"github.com/bureau-foundation/switchboard/transport"
)

// Dispatcher receives dispatch envelopes. Dispatch is always called on
// the client's event loop goroutine, one envelope at a time, in arrival
// order, after the session's sequence has been advanced past it.
type Dispatcher interface {
	Dispatch(Envelope)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(Envelope)

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(envelope Envelope) { f(envelope) }

// Event names the client itself interprets.
const (
	EventReady   = "READY"
	EventResumed = "RESUMED"
)

// Close codes after which the server will not accept a resume.
const (
	CloseInvalidSequence = 4007
	CloseSessionTimedOut = 4009
)

const (
	DefaultReconnectDelay      = time.Second
	DefaultMaxReconnectDelay   = 30 * time.Second
	DefaultInvalidSessionDelay = time.Second
	DefaultOutboundBuffer      = 64
)

var (
	// ErrAlreadyStarted is returned by Start while a run is in progress.
	ErrAlreadyStarted = errors.New("gateway: client already started")

	// ErrNotConnected is returned by intents sent without an
	// established session.
	ErrNotConnected = errors.New("gateway: not connected")

	// ErrStopped is returned by calls that raced with shutdown.
	ErrStopped = errors.New("gateway: client stopped")
)

// Config configures a Client.
type Config struct {
	// URL is the initial gateway URL, including its version and
	// encoding query parameters.
	URL string

	// Token authenticates identify and resume.
	Token string

	Properties     IdentifyProperties
	Capabilities   int
	Intents        *int
	Presence       *PresenceUpdate
	LargeThreshold int

	// Compress enables zlib-stream transport compression by adding
	// compress=zlib-stream to every connection URL.
	Compress bool

	// Dialer opens connections. Nil selects a transport.WebSocketDialer.
	Dialer transport.Dialer

	// Dispatcher receives dispatch envelopes. Nil discards them.
	Dispatcher Dispatcher

	// Notifier receives connection-loss notifications. Connection
	// establishment is reported by the Dispatcher's READY and RESUMED
	// handling. Nil discards them.
	Notifier notify.Emitter

	// Clock drives heartbeats and reconnect delays. Nil selects
	// clock.Real().
	Clock clock.Clock

	// Logger receives lifecycle logs. Nil selects slog.Default().
	Logger *slog.Logger

	// ReconnectDelay and MaxReconnectDelay bound the exponential
	// backoff between consecutive failed connection attempts. The
	// first attempt after a healthy session is always immediate.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	// InvalidSessionDelay is the pause between an invalid session and
	// the fresh identify that follows it.
	InvalidSessionDelay time.Duration

	// InflateChunkSize is the decompressor's output growth step.
	InflateChunkSize int

	// OutboundBuffer is the per-connection queue of frames awaiting
	// the writer. A full queue is treated as a transport fault.
	OutboundBuffer int
}

// connection is one live transport connection and its writer.
type connection struct {
	generation uint64
	transport  transport.Conn
	outbound   chan []byte
	cancel     context.CancelFunc
}

// Client is a gateway session client. Create with New, then Start.
// Once stopped, by Stop or by cancellation of the Start context, the
// client is idle again and Start begins a fresh session.
type Client struct {
	config     Config
	logger     *slog.Logger
	clock      clock.Clock
	dialer     transport.Dialer
	dispatcher Dispatcher
	notifier   notify.Emitter
	initialURL *url.URL

	inbox *inbox

	// lifecycle guards started, running and control. control is
	// replaced only by Start, while no loop is running.
	lifecycle sync.Mutex
	started   bool
	running   bool
	control   *runControl

	// Everything below is owned by the event loop once Start returns.
	ctx             context.Context
	cancel          context.CancelFunc
	workers         sync.WaitGroup
	generation      uint64
	state           SessionState
	heartbeat       heartbeat
	decompressor    *inflate.Decompressor
	conn            *connection
	held            []Envelope
	resumeRequested bool
	backoff         backoff
}

// runControl is the stop signal and exit notice of one event loop run.
type runControl struct {
	stopping chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newRunControl() *runControl {
	return &runControl{stopping: make(chan struct{}), done: make(chan struct{})}
}

func (r *runControl) stop() { r.stopOnce.Do(func() { close(r.stopping) }) }

func (r *runControl) exited() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

type discardNotifier struct{}

func (discardNotifier) Emit(notify.Notification) {}

// New validates config and returns an idle Client.
func New(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("gateway: token is required")
	}
	initialURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("gateway: parsing URL: %w", err)
	}
	if initialURL.Scheme != "ws" && initialURL.Scheme != "wss" {
		return nil, fmt.Errorf("gateway: URL scheme must be ws or wss, got %q", initialURL.Scheme)
	}
	if config.Compress {
		query := initialURL.Query()
		query.Set("compress", "zlib-stream")
		initialURL.RawQuery = query.Encode()
	}

	if config.Dialer == nil {
		config.Dialer = &transport.WebSocketDialer{}
	}
	if config.Dispatcher == nil {
		config.Dispatcher = DispatcherFunc(func(Envelope) {})
	}
	if config.Notifier == nil {
		config.Notifier = discardNotifier{}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = DefaultReconnectDelay
	}
	if config.MaxReconnectDelay <= 0 {
		config.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if config.MaxReconnectDelay < config.ReconnectDelay {
		config.MaxReconnectDelay = config.ReconnectDelay
	}
	if config.InvalidSessionDelay <= 0 {
		config.InvalidSessionDelay = DefaultInvalidSessionDelay
	}
	if config.OutboundBuffer <= 0 {
		config.OutboundBuffer = DefaultOutboundBuffer
	}

	return &Client{
		config:       config,
		logger:       config.Logger,
		clock:        config.Clock,
		dialer:       config.Dialer,
		dispatcher:   config.Dispatcher,
		notifier:     config.Notifier,
		initialURL:   initialURL,
		inbox:        newInbox(),
		control:      newRunControl(),
		state:        emptySession(),
		heartbeat:    heartbeat{clock: config.Clock},
		decompressor: inflate.New(config.InflateChunkSize, config.Logger),
		backoff:      backoff{base: config.ReconnectDelay, max: config.MaxReconnectDelay},
	}, nil
}

// Start begins connecting in the background. Cancelling ctx has the
// same effect as Stop, except that Stop also waits. Start on a client
// whose previous run has ended begins a new session with an identify;
// Start on a running client returns ErrAlreadyStarted.
func (c *Client) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.started {
		if !c.control.exited() {
			return ErrAlreadyStarted
		}
		// Calls posted after a cancelled run exited were already
		// reported to their callers as ErrStopped.
		c.inbox.drain()
		c.control = newRunControl()
	}
	c.started = true
	c.running = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.run(c.control)
	return nil
}

// Stop closes the connection, abandons any pending reconnect, clears
// the session and emits a final Disconnected notification. When Stop
// returns, the event loop and every goroutine it started have exited
// and no further notification will be emitted. Stop is idempotent.
func (c *Client) Stop() {
	c.lifecycle.Lock()
	started, control := c.started, c.control
	c.lifecycle.Unlock()
	if !started {
		return
	}
	control.stop()
	<-control.done

	c.lifecycle.Lock()
	if c.control == control {
		c.running = false
	}
	c.lifecycle.Unlock()
}

// Done is closed when the current run's event loop has shut down,
// whether through Stop or through cancellation of the context passed
// to Start. A later Start begins a run with a new Done channel.
func (c *Client) Done() <-chan struct{} {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.control.done
}

// State returns a snapshot of the session state.
func (c *Client) State() SessionState {
	var state SessionState
	if !c.call(func() { state = c.state }) {
		return emptySession()
	}
	return state
}

// Status returns the current lifecycle state.
func (c *Client) Status() Status { return c.State().Status }

// SessionID returns the current session ID, or "" without a session.
func (c *Client) SessionID() string { return c.State().SessionID }

// LastSequence returns the last dispatch sequence seen, or -1.
func (c *Client) LastSequence() int64 { return c.State().LastSequence }

// HeartbeatLatency returns the round trip of the most recently
// acknowledged heartbeat.
func (c *Client) HeartbeatLatency() time.Duration {
	var latency time.Duration
	c.call(func() { latency = c.heartbeat.latency })
	return latency
}

// UpdatePresence sets the current user's presence.
func (c *Client) UpdatePresence(update PresenceUpdate) error {
	if update.Activities == nil {
		update.Activities = []schema.Activity{}
	}
	return c.sendIntent(OpPresenceUpdate, update)
}

// UpdateVoiceState joins, moves within or leaves a voice channel.
func (c *Client) UpdateVoiceState(update VoiceStateUpdate) error {
	return c.sendIntent(OpVoiceStateUpdate, update)
}

// RequestGuildMembers asks the server for member chunks. It fills in a
// fresh nonce when the request has none and returns the nonce, which
// the resulting GUILD_MEMBERS_CHUNK events echo.
func (c *Client) RequestGuildMembers(request RequestGuildMembers) (string, error) {
	if request.Nonce == "" {
		request.Nonce = newNonce()
	}
	return request.Nonce, c.sendIntent(OpRequestGuildMembers, request)
}

// RequestLazyLoad subscribes to a guild's member list ranges, typing
// and thread activity.
func (c *Client) RequestLazyLoad(request LazyRequest) error {
	return c.sendIntent(OpLazyRequest, request)
}

func (c *Client) sendIntent(op Opcode, payload any) error {
	var err error
	ran := c.call(func() {
		if c.state.Status != StatusConnected {
			err = ErrNotConnected
			return
		}
		err = c.sendCommand(op, payload)
	})
	if !ran {
		return ErrStopped
	}
	return err
}

// call runs fn on the event loop and waits for it. Before Start and
// after Stop, fn runs on the caller's goroutine. It reports false if
// the loop shut down before running fn.
func (c *Client) call(fn func()) bool {
	c.lifecycle.Lock()
	if !c.running {
		fn()
		c.lifecycle.Unlock()
		return true
	}
	loopDone := c.control.done
	done := make(chan struct{})
	c.inbox.post(item{kind: itemCall, call: func() {
		fn()
		close(done)
	}})
	c.lifecycle.Unlock()

	select {
	case <-done:
		return true
	case <-loopDone:
		return false
	}
}
