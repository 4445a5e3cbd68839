// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"time"

	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// ChannelType distinguishes text, voice, category, private and thread
// channels.
type ChannelType int

const (
	ChannelTypeGuildText          ChannelType = 0
	ChannelTypeDM                 ChannelType = 1
	ChannelTypeGuildVoice         ChannelType = 2
	ChannelTypeGroupDM            ChannelType = 3
	ChannelTypeGuildCategory      ChannelType = 4
	ChannelTypeGuildAnnouncement  ChannelType = 5
	ChannelTypeAnnouncementThread ChannelType = 10
	ChannelTypePublicThread       ChannelType = 11
	ChannelTypePrivateThread      ChannelType = 12
	ChannelTypeGuildStageVoice    ChannelType = 13
	ChannelTypeGuildForum         ChannelType = 15
)

// IsThread reports whether channels of this type are threads, which
// take their permissions from their parent channel.
func (t ChannelType) IsThread() bool {
	switch t {
	case ChannelTypeAnnouncementThread, ChannelTypePublicThread, ChannelTypePrivateThread:
		return true
	}
	return false
}

// IsPrivate reports whether the type is a direct or group message
// channel, which belongs to no guild.
func (t ChannelType) IsPrivate() bool {
	return t == ChannelTypeDM || t == ChannelTypeGroupDM
}

// Channel is a guild channel, a thread, or a private channel.
type Channel struct {
	ID                   snowflake.ID          `json:"id"`
	Type                 ChannelType           `json:"type"`
	GuildID              snowflake.ID          `json:"guild_id,omitempty"`
	Position             int                   `json:"position,omitempty"`
	Name                 string                `json:"name,omitempty"`
	Topic                string                `json:"topic,omitempty"`
	NSFW                 bool                  `json:"nsfw,omitempty"`
	LastMessageID        snowflake.ID          `json:"last_message_id,omitempty"`
	ParentID             snowflake.ID          `json:"parent_id,omitempty"`
	OwnerID              snowflake.ID          `json:"owner_id,omitempty"`
	PermissionOverwrites []PermissionOverwrite `json:"permission_overwrites,omitempty"`
	Recipients           []User                `json:"recipients,omitempty"`

	// Thread-only fields.
	ThreadMetadata *ThreadMetadata `json:"thread_metadata,omitempty"`
	Member         *ThreadMember   `json:"member,omitempty"`
	MessageCount   int             `json:"message_count,omitempty"`
	MemberCount    int             `json:"member_count,omitempty"`

	// NewlyCreated is set on THREAD_CREATE when the thread was just
	// created. The server also sends THREAD_CREATE when the user gains
	// access to an existing thread, and does not always set this field
	// consistently in that case.
	NewlyCreated bool `json:"newly_created,omitempty"`
}

// OverwriteType says whether an overwrite targets a role or a member.
type OverwriteType int

const (
	OverwriteRole   OverwriteType = 0
	OverwriteMember OverwriteType = 1
)

// PermissionOverwrite is a channel-scoped allow/deny delta for one role
// or member. A channel holds at most one overwrite per subject.
type PermissionOverwrite struct {
	ID    snowflake.ID  `json:"id"`
	Type  OverwriteType `json:"type"`
	Allow Permissions   `json:"allow"`
	Deny  Permissions   `json:"deny"`
}

// ThreadMetadata carries a thread's archive state.
type ThreadMetadata struct {
	Archived            bool       `json:"archived"`
	AutoArchiveDuration int        `json:"auto_archive_duration"`
	ArchiveTimestamp    *time.Time `json:"archive_timestamp,omitempty"`
	Locked              bool       `json:"locked,omitempty"`
}

// ThreadMember records that a user has joined a thread.
type ThreadMember struct {
	ID            snowflake.ID `json:"id,omitempty"`
	UserID        snowflake.ID `json:"user_id,omitempty"`
	JoinTimestamp *time.Time   `json:"join_timestamp,omitempty"`
	Flags         int          `json:"flags,omitempty"`
}
