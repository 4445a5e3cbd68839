// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/bureau-foundation/switchboard/lib/snowflake"

// User is an account.
type User struct {
	ID            snowflake.ID `json:"id"`
	Username      string       `json:"username,omitempty"`
	Discriminator string       `json:"discriminator,omitempty"`
	GlobalName    string       `json:"global_name,omitempty"`
	Avatar        string       `json:"avatar,omitempty"`
	Bot           bool         `json:"bot,omitempty"`
}

// DisplayName returns the global display name when set, otherwise the
// username.
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// RelationshipType is the kind of link between the current user and
// another user.
type RelationshipType int

const (
	RelationshipFriend          RelationshipType = 1
	RelationshipBlocked         RelationshipType = 2
	RelationshipIncomingRequest RelationshipType = 3
	RelationshipOutgoingRequest RelationshipType = 4
)

// Relationship links the current user to another user.
type Relationship struct {
	ID   snowflake.ID     `json:"id"`
	Type RelationshipType `json:"type"`
	User *User            `json:"user,omitempty"`
}

// Status is a presence status string.
type Status string

const (
	StatusOnline       Status = "online"
	StatusIdle         Status = "idle"
	StatusDoNotDisturb Status = "dnd"
	StatusInvisible    Status = "invisible"
	StatusOffline      Status = "offline"
)

// Presence is a user's status in a guild (or globally for friends).
type Presence struct {
	User         User              `json:"user"`
	GuildID      snowflake.ID      `json:"guild_id,omitempty"`
	Status       Status            `json:"status"`
	Activities   []Activity        `json:"activities,omitempty"`
	ClientStatus map[string]Status `json:"client_status,omitempty"`
}

// Activity is one entry of a presence's activity list.
type Activity struct {
	Name  string `json:"name"`
	Type  int    `json:"type"`
	State string `json:"state,omitempty"`
}

// VoiceState is a user's connection to a voice channel. A zero
// ChannelID means the user left voice.
type VoiceState struct {
	GuildID   snowflake.ID `json:"guild_id,omitempty"`
	ChannelID snowflake.ID `json:"channel_id,omitempty"`
	UserID    snowflake.ID `json:"user_id"`
	SessionID string       `json:"session_id,omitempty"`
	Deaf      bool         `json:"deaf,omitempty"`
	Mute      bool         `json:"mute,omitempty"`
	SelfDeaf  bool         `json:"self_deaf,omitempty"`
	SelfMute  bool         `json:"self_mute,omitempty"`
	SelfVideo bool         `json:"self_video,omitempty"`
	Suppress  bool         `json:"suppress,omitempty"`
}

// ReadState is the current user's read position in one channel.
type ReadState struct {
	ChannelID     snowflake.ID `json:"id"`
	LastMessageID snowflake.ID `json:"last_message_id,omitempty"`
	MentionCount  int          `json:"mention_count,omitempty"`
}

// GuildSettings holds the current user's notification settings for a
// guild. A zero GuildID addresses private channels.
type GuildSettings struct {
	GuildID              snowflake.ID      `json:"guild_id,omitempty"`
	Muted                bool              `json:"muted"`
	SuppressEveryone     bool              `json:"suppress_everyone,omitempty"`
	MessageNotifications int               `json:"message_notifications,omitempty"`
	ChannelOverrides     []ChannelOverride `json:"channel_overrides,omitempty"`
}

// ChannelOverride is a per-channel notification override within
// GuildSettings.
type ChannelOverride struct {
	ChannelID            snowflake.ID `json:"channel_id"`
	Muted                bool         `json:"muted"`
	MessageNotifications int          `json:"message_notifications,omitempty"`
}
