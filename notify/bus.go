// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"sync"
	"sync/atomic"
)

// Handler receives notifications.
type Handler func(Notification)

// Emitter is implemented by anything that accepts notifications for
// delivery.
type Emitter interface {
	Emit(Notification)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans notifications out to subscribers. Emit reads an immutable
// snapshot of the subscriber list, so subscribing and unsubscribing
// never block delivery and a handler may unsubscribe itself.
type Bus struct {
	mu            sync.Mutex
	subscriptions atomic.Pointer[[]subscription]
	nextID        uint64
}

// NewBus returns a Bus with no subscribers.
func NewBus() *Bus {
	bus := &Bus{}
	bus.subscriptions.Store(&[]subscription{})
	return bus
}

// Subscribe registers handler and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	current := *b.subscriptions.Load()
	updated := make([]subscription, len(current), len(current)+1)
	copy(updated, current)
	updated = append(updated, subscription{id: id, handler: handler})
	b.subscriptions.Store(&updated)

	return func() { b.remove(id) }
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current := *b.subscriptions.Load()
	updated := make([]subscription, 0, len(current))
	for _, existing := range current {
		if existing.id != id {
			updated = append(updated, existing)
		}
	}
	b.subscriptions.Store(&updated)
}

// Emit delivers notification to every current subscriber in
// subscription order, on the calling goroutine.
func (b *Bus) Emit(notification Notification) {
	for _, subscriber := range *b.subscriptions.Load() {
		subscriber.handler(notification)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int { return len(*b.subscriptions.Load()) }

// Collector is a Handler that appends every notification to a slice.
// Tests and tooling use it to capture the emitted sequence.
type Collector struct {
	mu            sync.Mutex
	notifications []Notification
}

// Handle appends notification.
func (c *Collector) Handle(notification Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, notification)
}

// Notifications returns a copy of everything collected so far.
func (c *Collector) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.notifications...)
}

// Kinds returns the kinds of everything collected so far, in order.
func (c *Collector) Kinds() []Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]Kind, len(c.notifications))
	for index, notification := range c.notifications {
		kinds[index] = notification.Kind()
	}
	return kinds
}
