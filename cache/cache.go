// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// Writer is the narrow mutation interface used by the dispatcher.
// Each Set replaces the stored value wholesale; each Clear removes it
// and is a no-op for an absent entity.
type Writer interface {
	// Begin opens a transaction. Transactions nest; only the
	// outermost End commits.
	Begin()
	// End commits the transaction opened by the matching Begin.
	End()

	SetCurrentUser(user schema.User)
	SetUser(user schema.User)

	// SetGuild stores the guild's scalar fields. ClearGuild also
	// removes every role, channel, member, emoji, presence, voice
	// state and ban belonging to the guild.
	SetGuild(guild schema.Guild)
	ClearGuild(guildID snowflake.ID)

	SetRole(guildID snowflake.ID, role schema.Role)
	ClearRole(guildID, roleID snowflake.ID)

	// ClearChannel also removes the channel's messages and read state.
	SetChannel(channel schema.Channel)
	ClearChannel(channelID snowflake.ID)

	SetMember(guildID snowflake.ID, member schema.Member)
	ClearMember(guildID, userID snowflake.ID)

	SetMessage(message schema.Message)
	ClearMessage(channelID, messageID snowflake.ID)

	SetPresence(presence schema.Presence)
	SetVoiceState(state schema.VoiceState)
	ClearVoiceState(guildID, userID snowflake.ID)
	SetReadState(state schema.ReadState)
	SetGuildSettings(settings schema.GuildSettings)
	SetEmojis(guildID snowflake.ID, emojis []schema.Emoji)

	SetRelationship(relationship schema.Relationship)
	ClearRelationship(userID snowflake.ID)

	SetBan(ban schema.Ban)
	ClearBan(guildID, userID snowflake.ID)

	SetInvite(invite schema.Invite)
	ClearInvite(code string)
}

// Reader answers lookups. The boolean result is false for an absent
// entity; list accessors return nil for an unknown parent.
type Reader interface {
	CurrentUser() (schema.User, bool)
	User(userID snowflake.ID) (schema.User, bool)

	Guild(guildID snowflake.ID) (schema.Guild, bool)
	Guilds() []schema.Guild

	Role(guildID, roleID snowflake.ID) (schema.Role, bool)
	Roles(guildID snowflake.ID) []schema.Role

	Channel(channelID snowflake.ID) (schema.Channel, bool)
	Channels(guildID snowflake.ID) []schema.Channel
	Overwrites(channelID snowflake.ID) []schema.PermissionOverwrite

	Member(guildID, userID snowflake.ID) (schema.Member, bool)
	Members(guildID snowflake.ID) []schema.Member

	Message(channelID, messageID snowflake.ID) (schema.Message, bool)
	Messages(channelID snowflake.ID) []schema.Message

	Presence(guildID, userID snowflake.ID) (schema.Presence, bool)
	VoiceState(guildID, userID snowflake.ID) (schema.VoiceState, bool)
	ReadState(channelID snowflake.ID) (schema.ReadState, bool)
	GuildSettings(guildID snowflake.ID) (schema.GuildSettings, bool)
	Emojis(guildID snowflake.ID) []schema.Emoji
	Relationship(userID snowflake.ID) (schema.Relationship, bool)
	Relationships() []schema.Relationship
	Ban(guildID, userID snowflake.ID) (schema.Ban, bool)
	Invite(code string) (schema.Invite, bool)
}

// Store is both sides of the cache.
type Store interface {
	Writer
	Reader
}
