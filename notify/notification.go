// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// Kind names a notification type. Kinds are stable strings used as
// recording tags and NATS subject suffixes.
type Kind string

const (
	KindConnected         Kind = "connected"
	KindDisconnected      Kind = "disconnected"
	KindEntityCreated     Kind = "entity_created"
	KindEntityUpdated     Kind = "entity_updated"
	KindEntityDeleted     Kind = "entity_deleted"
	KindThreadCreated     Kind = "thread_created"
	KindThreadsSynced     Kind = "threads_synced"
	KindMembersChunk      Kind = "members_chunk"
	KindMessagesDeleted   Kind = "messages_deleted"
	KindReactionAdded     Kind = "reaction_added"
	KindReactionRemoved   Kind = "reaction_removed"
	KindReadStateChanged  Kind = "read_state_changed"
	KindPresenceChanged   Kind = "presence_changed"
	KindTypingStarted     Kind = "typing_started"
	KindVoiceStateChanged Kind = "voice_state_changed"
)

// Notification is one observable change.
type Notification interface {
	Kind() Kind
}

// Entity names the kind of cached object an entity notification refers
// to.
type Entity string

const (
	EntityGuild         Entity = "guild"
	EntityChannel       Entity = "channel"
	EntityThread        Entity = "thread"
	EntityRole          Entity = "role"
	EntityMember        Entity = "member"
	EntityMessage       Entity = "message"
	EntityUser          Entity = "user"
	EntityGuildSettings Entity = "guild_settings"
	EntityEmojis        Entity = "emojis"
	EntityBan           Entity = "ban"
	EntityRelationship  Entity = "relationship"
	EntityInvite        Entity = "invite"
)

// Connected reports that a session was established (Resumed false) or
// resumed (Resumed true).
type Connected struct {
	SessionID string `cbor:"session_id"`
	Resumed   bool   `cbor:"resumed,omitempty"`
}

// Disconnected reports that the connection was lost. Reconnecting is
// false only after an explicit stop.
type Disconnected struct {
	Reconnecting bool   `cbor:"reconnecting"`
	CloseCode    int    `cbor:"close_code,omitempty"`
	Reason       string `cbor:"reason,omitempty"`
}

// EntityRef identifies a cached object. Zero fields do not apply to
// the entity kind. Code is set only for invites.
type EntityRef struct {
	Entity    Entity       `cbor:"entity"`
	ID        snowflake.ID `cbor:"id,omitempty"`
	GuildID   snowflake.ID `cbor:"guild_id,omitempty"`
	ChannelID snowflake.ID `cbor:"channel_id,omitempty"`
	Code      string       `cbor:"code,omitempty"`
}

// EntityCreated reports a new object in the cache.
type EntityCreated struct {
	EntityRef
}

// EntityUpdated reports a changed object, including partial updates
// merged into the cached value.
type EntityUpdated struct {
	EntityRef
}

// EntityDeleted reports a removed object. Unavailable is set when a
// guild became unreachable rather than being left.
type EntityDeleted struct {
	EntityRef
	Unavailable bool `cbor:"unavailable,omitempty"`
}

// ThreadCreated reports a THREAD_CREATE event. The server sends it
// both for new threads and for existing threads the user has just
// gained access to. NewlyCreated is the payload's own claim and
// AlreadyKnown says whether the thread was cached before the event.
// Neither is a reliable signal on its own.
type ThreadCreated struct {
	ThreadID     snowflake.ID `cbor:"thread_id"`
	GuildID      snowflake.ID `cbor:"guild_id"`
	ParentID     snowflake.ID `cbor:"parent_id,omitempty"`
	NewlyCreated bool         `cbor:"newly_created,omitempty"`
	AlreadyKnown bool         `cbor:"already_known,omitempty"`
}

// ThreadsSynced reports a THREAD_LIST_SYNC for a guild.
type ThreadsSynced struct {
	GuildID   snowflake.ID   `cbor:"guild_id"`
	ThreadIDs []snowflake.ID `cbor:"thread_ids,omitempty"`
}

// MembersChunk reports one chunk of a guild member request.
type MembersChunk struct {
	GuildID    snowflake.ID `cbor:"guild_id"`
	Nonce      string       `cbor:"nonce,omitempty"`
	ChunkIndex int          `cbor:"chunk_index"`
	ChunkCount int          `cbor:"chunk_count"`
	Members    int          `cbor:"members"`
	NotFound   int          `cbor:"not_found,omitempty"`
}

// MessagesDeleted reports a bulk message deletion.
type MessagesDeleted struct {
	ChannelID  snowflake.ID   `cbor:"channel_id"`
	GuildID    snowflake.ID   `cbor:"guild_id,omitempty"`
	MessageIDs []snowflake.ID `cbor:"message_ids"`
}

// Reaction identifies one user's reaction to a message.
type Reaction struct {
	ChannelID snowflake.ID `cbor:"channel_id"`
	MessageID snowflake.ID `cbor:"message_id"`
	GuildID   snowflake.ID `cbor:"guild_id,omitempty"`
	UserID    snowflake.ID `cbor:"user_id"`
	Emoji     string       `cbor:"emoji"`
}

// ReactionAdded reports a reaction.
type ReactionAdded struct {
	Reaction
}

// ReactionRemoved reports a withdrawn reaction.
type ReactionRemoved struct {
	Reaction
}

// ReadStateChanged reports that the read position or unread mention
// count of a channel changed.
type ReadStateChanged struct {
	ChannelID     snowflake.ID `cbor:"channel_id"`
	LastMessageID snowflake.ID `cbor:"last_message_id,omitempty"`
	MentionCount  int          `cbor:"mention_count"`
}

// PresenceChanged reports a user's new status.
type PresenceChanged struct {
	GuildID snowflake.ID `cbor:"guild_id,omitempty"`
	UserID  snowflake.ID `cbor:"user_id"`
	Status  string       `cbor:"status"`
}

// TypingStarted reports a user typing in a channel.
type TypingStarted struct {
	ChannelID snowflake.ID `cbor:"channel_id"`
	GuildID   snowflake.ID `cbor:"guild_id,omitempty"`
	UserID    snowflake.ID `cbor:"user_id"`
}

// VoiceStateChanged reports a user joining, moving within or leaving
// voice. ChannelID is zero when the user left.
type VoiceStateChanged struct {
	GuildID   snowflake.ID `cbor:"guild_id,omitempty"`
	ChannelID snowflake.ID `cbor:"channel_id,omitempty"`
	UserID    snowflake.ID `cbor:"user_id"`
}

func (Connected) Kind() Kind         { return KindConnected }
func (Disconnected) Kind() Kind      { return KindDisconnected }
func (EntityCreated) Kind() Kind     { return KindEntityCreated }
func (EntityUpdated) Kind() Kind     { return KindEntityUpdated }
func (EntityDeleted) Kind() Kind     { return KindEntityDeleted }
func (ThreadCreated) Kind() Kind     { return KindThreadCreated }
func (ThreadsSynced) Kind() Kind     { return KindThreadsSynced }
func (MembersChunk) Kind() Kind      { return KindMembersChunk }
func (MessagesDeleted) Kind() Kind   { return KindMessagesDeleted }
func (ReactionAdded) Kind() Kind     { return KindReactionAdded }
func (ReactionRemoved) Kind() Kind   { return KindReactionRemoved }
func (ReadStateChanged) Kind() Kind  { return KindReadStateChanged }
func (PresenceChanged) Kind() Kind   { return KindPresenceChanged }
func (TypingStarted) Kind() Kind     { return KindTypingStarted }
func (VoiceStateChanged) Kind() Kind { return KindVoiceStateChanged }
