// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/bureau-foundation/switchboard/transport"
)

type itemKind int

const (
	itemFrame itemKind = iota
	itemReadError
	itemWriteError
	itemDialResult
	itemHeartbeatTick
	itemRetry
	itemInvalidSessionDelay
	itemCall
)

// item is one unit of work for the event loop.
type item struct {
	kind       itemKind
	generation uint64

	messageType transport.MessageType
	data        []byte
	err         error
	conn        transport.Conn
	url         string
	call        func()
}

// inbox hands items from any goroutine to the event loop. post never
// blocks: items queue without bound and a one-slot channel wakes the
// loop.
type inbox struct {
	mu     sync.Mutex
	items  *queue.Queue
	signal chan struct{}
}

func newInbox() *inbox {
	return &inbox{items: queue.New(), signal: make(chan struct{}, 1)}
}

func (b *inbox) post(it item) {
	b.mu.Lock()
	b.items.Add(it)
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// ready is signalled after one or more posts.
func (b *inbox) ready() <-chan struct{} { return b.signal }

// take removes the oldest item.
func (b *inbox) take() (item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.items.Length() == 0 {
		return item{}, false
	}
	return b.items.Remove().(item), true
}

// drain removes and returns every queued item.
func (b *inbox) drain() []item {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]item, 0, b.items.Length())
	for b.items.Length() > 0 {
		items = append(items, b.items.Remove().(item))
	}
	return items
}

func (b *inbox) length() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Length()
}
