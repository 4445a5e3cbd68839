// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"time"

	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// Guild is a server: a scope owning channels, roles and members.
//
// The collection fields are populated only in GUILD_CREATE and READY
// payloads. GUILD_UPDATE carries the scalar fields alone.
type Guild struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	Icon        string       `json:"icon,omitempty"`
	OwnerID     snowflake.ID `json:"owner_id"`
	MemberCount int          `json:"member_count,omitempty"`
	Large       bool         `json:"large,omitempty"`
	JoinedAt    *time.Time   `json:"joined_at,omitempty"`

	// Unavailable marks a guild the server could not load, typically
	// during an outage. An unavailable GUILD_DELETE means the guild is
	// temporarily unreachable, not that the user left it.
	Unavailable bool `json:"unavailable,omitempty"`

	Roles       []Role       `json:"roles,omitempty"`
	Emojis      []Emoji      `json:"emojis,omitempty"`
	Channels    []Channel    `json:"channels,omitempty"`
	Threads     []Channel    `json:"threads,omitempty"`
	Members     []Member     `json:"members,omitempty"`
	Presences   []Presence   `json:"presences,omitempty"`
	VoiceStates []VoiceState `json:"voice_states,omitempty"`
}

// Scalar returns a copy of g with the collection fields cleared, the
// form stored in a cache that keeps collections in their own tables.
func (g Guild) Scalar() Guild {
	g.Roles = nil
	g.Emojis = nil
	g.Channels = nil
	g.Threads = nil
	g.Members = nil
	g.Presences = nil
	g.VoiceStates = nil
	return g
}

// Role is an immutable snapshot of a guild role. Updates replace the
// whole value. The role whose ID equals its guild's ID is the
// guild's default (@everyone) role, held implicitly by every member.
type Role struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	Color       int          `json:"color"`
	Hoist       bool         `json:"hoist"`
	Position    int          `json:"position"`
	Permissions Permissions  `json:"permissions"`
	Managed     bool         `json:"managed"`
	Mentionable bool         `json:"mentionable"`
}

// Member is a user's membership in a guild.
type Member struct {
	User     *User          `json:"user,omitempty"`
	GuildID  snowflake.ID   `json:"guild_id,omitempty"`
	Nick     string         `json:"nick,omitempty"`
	Roles    []snowflake.ID `json:"roles"`
	JoinedAt *time.Time     `json:"joined_at,omitempty"`
	Deaf     bool           `json:"deaf,omitempty"`
	Mute     bool           `json:"mute,omitempty"`
	Pending  bool           `json:"pending,omitempty"`
}

// UserID returns the ID of the member's user, or zero when the
// payload omitted the user object.
func (m Member) UserID() snowflake.ID {
	if m.User == nil {
		return 0
	}
	return m.User.ID
}

// Emoji is a custom guild emoji, or a unicode emoji when ID is zero.
type Emoji struct {
	ID       snowflake.ID   `json:"id,omitempty"`
	Name     string         `json:"name"`
	Animated bool           `json:"animated,omitempty"`
	Roles    []snowflake.ID `json:"roles,omitempty"`
}

// Key identifies an emoji in reaction indices: the custom emoji ID when
// present, otherwise the unicode name.
func (e Emoji) Key() string {
	if !e.ID.IsZero() {
		return e.ID.String()
	}
	return e.Name
}

// Ban records a user banned from a guild.
type Ban struct {
	GuildID snowflake.ID `json:"guild_id"`
	User    User         `json:"user"`
}

// Invite is an invite code to a guild channel.
type Invite struct {
	Code      string       `json:"code"`
	GuildID   snowflake.ID `json:"guild_id,omitempty"`
	ChannelID snowflake.ID `json:"channel_id"`
	Inviter   *User        `json:"inviter,omitempty"`
	MaxAge    int          `json:"max_age,omitempty"`
	MaxUses   int          `json:"max_uses,omitempty"`
	Uses      int          `json:"uses,omitempty"`
	Temporary bool         `json:"temporary,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
}
