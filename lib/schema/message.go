// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"time"

	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// Message is a chat message.
type Message struct {
	ID              snowflake.ID   `json:"id"`
	ChannelID       snowflake.ID   `json:"channel_id"`
	GuildID         snowflake.ID   `json:"guild_id,omitempty"`
	Author          User           `json:"author"`
	Member          *Member        `json:"member,omitempty"`
	Content         string         `json:"content"`
	Timestamp       time.Time      `json:"timestamp"`
	EditedTimestamp *time.Time     `json:"edited_timestamp,omitempty"`
	Type            int            `json:"type,omitempty"`
	Pinned          bool           `json:"pinned,omitempty"`
	MentionEveryone bool           `json:"mention_everyone,omitempty"`
	Mentions        []User         `json:"mentions,omitempty"`
	MentionRoles    []snowflake.ID `json:"mention_roles,omitempty"`
	Reactions       []Reaction     `json:"reactions,omitempty"`
}

// MentionsUser reports whether the message mentions the given user
// directly, through @everyone, or through one of the given roles.
func (m Message) MentionsUser(userID snowflake.ID, roles []snowflake.ID) bool {
	if m.MentionEveryone {
		return true
	}
	for _, mentioned := range m.Mentions {
		if mentioned.ID == userID {
			return true
		}
	}
	for _, mentionedRole := range m.MentionRoles {
		for _, held := range roles {
			if mentionedRole == held {
				return true
			}
		}
	}
	return false
}

// MessageUpdate is the partial message carried by MESSAGE_UPDATE. Nil
// fields were absent from the payload and leave the cached value
// unchanged.
type MessageUpdate struct {
	ID              snowflake.ID `json:"id"`
	ChannelID       snowflake.ID `json:"channel_id"`
	GuildID         snowflake.ID `json:"guild_id,omitempty"`
	Content         *string      `json:"content,omitempty"`
	EditedTimestamp *time.Time   `json:"edited_timestamp,omitempty"`
	Pinned          *bool        `json:"pinned,omitempty"`
	Mentions        *[]User      `json:"mentions,omitempty"`
}

// Apply returns a copy of base with the update's present fields
// overlaid.
func (u MessageUpdate) Apply(base Message) Message {
	if u.Content != nil {
		base.Content = *u.Content
	}
	if u.EditedTimestamp != nil {
		edited := *u.EditedTimestamp
		base.EditedTimestamp = &edited
	}
	if u.Pinned != nil {
		base.Pinned = *u.Pinned
	}
	if u.Mentions != nil {
		base.Mentions = append([]User(nil), (*u.Mentions)...)
	}
	return base
}

// Reaction is the aggregate of one emoji on one message.
type Reaction struct {
	Count int   `json:"count"`
	Me    bool  `json:"me"`
	Emoji Emoji `json:"emoji"`
}
