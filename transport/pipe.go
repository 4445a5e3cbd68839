// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net"
	"sync"
)

// pipeBuffer is the number of messages a pipe direction holds before
// WriteMessage blocks.
const pipeBuffer = 256

type pipeFrame struct {
	messageType MessageType
	data        []byte
	close       *CloseError
}

// PipeConn is one end of an in-memory connection returned by Pipe.
type PipeConn struct {
	in  chan pipeFrame
	out chan pipeFrame

	done     chan struct{}
	peerDone chan struct{}
	once     sync.Once

	mu       sync.Mutex
	received *CloseError
}

// Pipe returns two connected ends. Messages written to one end are
// read from the other in order. Close on one end delivers a CloseError
// with the given code to the other end's reader.
func Pipe() (*PipeConn, *PipeConn) {
	aToB := make(chan pipeFrame, pipeBuffer)
	bToA := make(chan pipeFrame, pipeBuffer)
	aDone := make(chan struct{})
	bDone := make(chan struct{})
	a := &PipeConn{in: bToA, out: aToB, done: aDone, peerDone: bDone}
	b := &PipeConn{in: aToB, out: bToA, done: bDone, peerDone: aDone}
	return a, b
}

// ReadMessage returns the next message from the peer. After the peer
// closes, it returns the peer's CloseError; after a local Close, it
// returns net.ErrClosed.
func (p *PipeConn) ReadMessage() (MessageType, []byte, error) {
	p.mu.Lock()
	received := p.received
	p.mu.Unlock()
	if received != nil {
		return 0, nil, received
	}

	select {
	case <-p.done:
		return 0, nil, net.ErrClosed
	case frame := <-p.in:
		return p.deliver(frame)
	case <-p.peerDone:
		// Drain what the peer sent before it went away.
		select {
		case frame := <-p.in:
			return p.deliver(frame)
		default:
			return p.deliver(pipeFrame{close: &CloseError{Code: CloseAbnormal}})
		}
	}
}

func (p *PipeConn) deliver(frame pipeFrame) (MessageType, []byte, error) {
	if frame.close != nil {
		p.mu.Lock()
		p.received = frame.close
		p.mu.Unlock()
		return 0, nil, frame.close
	}
	return frame.messageType, frame.data, nil
}

// WriteMessage queues a copy of data for the peer.
func (p *PipeConn) WriteMessage(messageType MessageType, data []byte) error {
	select {
	case <-p.done:
		return net.ErrClosed
	case <-p.peerDone:
		return net.ErrClosed
	default:
	}
	frame := pipeFrame{messageType: messageType, data: append([]byte(nil), data...)}
	select {
	case <-p.done:
		return net.ErrClosed
	case <-p.peerDone:
		return net.ErrClosed
	case p.out <- frame:
		return nil
	}
}

// Close delivers a close frame with code to the peer and closes this
// end. Only the first call has an effect.
func (p *PipeConn) Close(code int, reason string) error {
	p.closeWith(&CloseError{Code: code, Reason: reason})
	return nil
}

// Abort closes this end and makes the peer's reader see an abnormal
// closure (code 1006), as when a network connection drops.
func (p *PipeConn) Abort() {
	p.closeWith(&CloseError{Code: CloseAbnormal})
}

// Closed returns a channel that is closed once this end is closed.
func (p *PipeConn) Closed() <-chan struct{} { return p.done }

func (p *PipeConn) closeWith(closeError *CloseError) {
	p.once.Do(func() {
		select {
		case p.out <- pipeFrame{close: closeError}:
		case <-p.peerDone:
		default:
		}
		close(p.done)
	})
}
