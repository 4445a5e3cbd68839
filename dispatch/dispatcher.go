// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/switchboard/cache"
	"github.com/bureau-foundation/switchboard/gateway"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
	"github.com/bureau-foundation/switchboard/notify"
)

// Config configures a Dispatcher.
type Config struct {
	// Cache receives entity mutations. Nil selects a fresh
	// cache.Memory.
	Cache cache.Store

	// Notifier receives one notification per handled event. Nil
	// discards them.
	Notifier notify.Emitter

	// Logger receives dropped-event logs. Nil selects slog.Default().
	Logger *slog.Logger
}

// Dispatcher routes dispatch envelopes to per-event handlers.
type Dispatcher struct {
	cache    cache.Store
	notifier notify.Emitter
	logger   *slog.Logger

	sessionID     string
	currentUserID snowflake.ID
	indices       indices
}

var _ gateway.Dispatcher = (*Dispatcher)(nil)

// handler applies one event. It decodes before writing, so an error
// means nothing was written.
type handler func(d *Dispatcher, payload json.RawMessage) (notify.Notification, error)

var handlers = map[string]handler{
	"READY":   (*Dispatcher).onReady,
	"RESUMED": (*Dispatcher).onResumed,

	"GUILD_CREATE":        (*Dispatcher).onGuildCreate,
	"GUILD_UPDATE":        (*Dispatcher).onGuildUpdate,
	"GUILD_DELETE":        (*Dispatcher).onGuildDelete,
	"GUILD_ROLE_CREATE":   (*Dispatcher).onRoleCreate,
	"GUILD_ROLE_UPDATE":   (*Dispatcher).onRoleUpdate,
	"GUILD_ROLE_DELETE":   (*Dispatcher).onRoleDelete,
	"GUILD_MEMBER_ADD":    (*Dispatcher).onMemberAdd,
	"GUILD_MEMBER_UPDATE": (*Dispatcher).onMemberUpdate,
	"GUILD_MEMBER_REMOVE": (*Dispatcher).onMemberRemove,
	"GUILD_MEMBERS_CHUNK": (*Dispatcher).onMembersChunk,
	"GUILD_BAN_ADD":       (*Dispatcher).onBanAdd,
	"GUILD_BAN_REMOVE":    (*Dispatcher).onBanRemove,
	"GUILD_EMOJIS_UPDATE": (*Dispatcher).onEmojisUpdate,
	"INVITE_CREATE":       (*Dispatcher).onInviteCreate,
	"INVITE_DELETE":       (*Dispatcher).onInviteDelete,

	"CHANNEL_CREATE":           (*Dispatcher).onChannelCreate,
	"CHANNEL_UPDATE":           (*Dispatcher).onChannelUpdate,
	"CHANNEL_DELETE":           (*Dispatcher).onChannelDelete,
	"CHANNEL_RECIPIENT_ADD":    (*Dispatcher).onRecipientAdd,
	"CHANNEL_RECIPIENT_REMOVE": (*Dispatcher).onRecipientRemove,
	"THREAD_CREATE":            (*Dispatcher).onThreadCreate,
	"THREAD_UPDATE":            (*Dispatcher).onThreadUpdate,
	"THREAD_DELETE":            (*Dispatcher).onThreadDelete,
	"THREAD_LIST_SYNC":         (*Dispatcher).onThreadListSync,
	"THREAD_MEMBERS_UPDATE":    (*Dispatcher).onThreadMembersUpdate,

	"MESSAGE_CREATE":          (*Dispatcher).onMessageCreate,
	"MESSAGE_UPDATE":          (*Dispatcher).onMessageUpdate,
	"MESSAGE_DELETE":          (*Dispatcher).onMessageDelete,
	"MESSAGE_DELETE_BULK":     (*Dispatcher).onMessageDeleteBulk,
	"MESSAGE_REACTION_ADD":    (*Dispatcher).onReactionAdd,
	"MESSAGE_REACTION_REMOVE": (*Dispatcher).onReactionRemove,
	"MESSAGE_ACK":             (*Dispatcher).onMessageAck,
	"TYPING_START":            (*Dispatcher).onTypingStart,

	"PRESENCE_UPDATE":            (*Dispatcher).onPresenceUpdate,
	"VOICE_STATE_UPDATE":         (*Dispatcher).onVoiceStateUpdate,
	"USER_UPDATE":                (*Dispatcher).onUserUpdate,
	"USER_GUILD_SETTINGS_UPDATE": (*Dispatcher).onGuildSettingsUpdate,
	"RELATIONSHIP_ADD":           (*Dispatcher).onRelationshipAdd,
	"RELATIONSHIP_REMOVE":        (*Dispatcher).onRelationshipRemove,
}

// Handles reports whether event has a handler.
func Handles(event string) bool {
	_, ok := handlers[event]
	return ok
}

type discardNotifier struct{}

func (discardNotifier) Emit(notify.Notification) {}

// New returns a Dispatcher with empty indices.
func New(config Config) *Dispatcher {
	if config.Cache == nil {
		config.Cache = cache.NewMemory()
	}
	if config.Notifier == nil {
		config.Notifier = discardNotifier{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Dispatcher{
		cache:    config.Cache,
		notifier: config.Notifier,
		logger:   config.Logger,
		indices:  newIndices(),
	}
}

// Dispatch handles one envelope. Non-dispatch envelopes are ignored.
func (d *Dispatcher) Dispatch(envelope gateway.Envelope) {
	if envelope.Op != gateway.OpDispatch {
		return
	}
	handle, ok := handlers[envelope.EventName]
	if !ok {
		d.logger.Debug("ignoring unhandled event", "event", envelope.EventName)
		return
	}

	d.cache.Begin()
	notification, err := handle(d, envelope.Payload)
	d.cache.End()

	if err != nil {
		attributes := []any{"event", envelope.EventName, "error", err}
		if envelope.Sequence != nil {
			attributes = append(attributes, "sequence", *envelope.Sequence)
		}
		d.logger.Warn("dropping malformed event", attributes...)
		return
	}
	d.notifier.Emit(notification)
}

// SessionID returns the session id from the last READY.
func (d *Dispatcher) SessionID() string { return d.sessionID }

// CurrentUserID returns the connected user's id, or zero before READY.
func (d *Dispatcher) CurrentUserID() snowflake.ID { return d.currentUserID }

// decode unmarshals an event payload.
func decode[T any](payload json.RawMessage) (T, error) {
	var value T
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return value, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(payload, &value); err != nil {
		return value, fmt.Errorf("decoding payload: %w", err)
	}
	return value, nil
}

// entries decodes a list sent either bare or in the versioned
// {"entries": [...]} form.
type entries[T any] []T

func (e *entries[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var versioned struct {
			Entries []T `json:"entries"`
		}
		if err := json.Unmarshal(trimmed, &versioned); err != nil {
			return err
		}
		*e = versioned.Entries
		return nil
	}
	var list []T
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*e = list
	return nil
}
