// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"log/slog"

	"github.com/bureau-foundation/switchboard/lib/codec"
)

// DefaultSubjectPrefix is the NATS subject prefix used when none is
// configured.
const DefaultSubjectPrefix = "switchboard"

// Publisher sends a message to a subject. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Relay republishes notifications to "<prefix>.<kind>" with a CBOR
// body. Publish errors are logged and do not affect the connection.
type Relay struct {
	publisher Publisher
	prefix    string
	logger    *slog.Logger
}

// NewRelay returns a Relay publishing through publisher.
func NewRelay(publisher Publisher, prefix string, logger *slog.Logger) *Relay {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{publisher: publisher, prefix: prefix, logger: logger}
}

// Subject returns the subject a notification of kind is published to.
func (r *Relay) Subject(kind Kind) string { return r.prefix + "." + string(kind) }

// Handle publishes notification.
func (r *Relay) Handle(notification Notification) {
	subject := r.Subject(notification.Kind())
	body, err := codec.Marshal(notification)
	if err != nil {
		r.logger.Error("encoding notification for relay failed",
			"kind", notification.Kind(),
			"error", err,
		)
		return
	}
	if err := r.publisher.Publish(subject, body); err != nil {
		r.logger.Warn("relaying notification failed",
			"subject", subject,
			"error", err,
		)
	}
}
