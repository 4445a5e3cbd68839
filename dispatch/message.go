// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"encoding/json"
	"slices"

	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
	"github.com/bureau-foundation/switchboard/notify"
)

func messageRef(guildID, channelID, messageID snowflake.ID) notify.EntityRef {
	return notify.EntityRef{Entity: notify.EntityMessage, ID: messageID, GuildID: guildID, ChannelID: channelID}
}

// onMessageCreate stores the message, advances the channel's last
// message and counts it as an unread mention when it mentions the
// current user.
func (d *Dispatcher) onMessageCreate(payload json.RawMessage) (notify.Notification, error) {
	message, err := decode[schema.Message](payload)
	if err != nil {
		return nil, err
	}

	if !message.Author.ID.IsZero() {
		d.cache.SetUser(message.Author)
	}
	if message.Member != nil && !message.GuildID.IsZero() {
		member := *message.Member
		author := message.Author
		member.User = &author
		d.storeMember(message.GuildID, member)
	}
	d.cache.SetMessage(message)
	addTo(d.indices.channelMessages, message.ChannelID, message.ID)

	if channel, ok := d.cache.Channel(message.ChannelID); ok && message.ID > channel.LastMessageID {
		channel.LastMessageID = message.ID
		d.cache.SetChannel(channel)
	}

	if d.mentionsCurrentUser(message) {
		d.indices.addMention(message.ChannelID, message.ID)
	}
	return notify.EntityCreated{EntityRef: messageRef(message.GuildID, message.ChannelID, message.ID)}, nil
}

func (d *Dispatcher) mentionsCurrentUser(message schema.Message) bool {
	if d.currentUserID.IsZero() || message.Author.ID == d.currentUserID {
		return false
	}
	var roles []snowflake.ID
	if !message.GuildID.IsZero() {
		if member, ok := d.cache.Member(message.GuildID, d.currentUserID); ok {
			roles = member.Roles
		}
	}
	return message.MentionsUser(d.currentUserID, roles)
}

// onMessageUpdate merges a partial update into the cached message. An
// update for a message that is not cached is still reported.
func (d *Dispatcher) onMessageUpdate(payload json.RawMessage) (notify.Notification, error) {
	update, err := decode[schema.MessageUpdate](payload)
	if err != nil {
		return nil, err
	}
	if cached, ok := d.cache.Message(update.ChannelID, update.ID); ok {
		d.cache.SetMessage(update.Apply(cached))
	}
	return notify.EntityUpdated{EntityRef: messageRef(update.GuildID, update.ChannelID, update.ID)}, nil
}

type messageDelete struct {
	ID        snowflake.ID `json:"id"`
	ChannelID snowflake.ID `json:"channel_id"`
	GuildID   snowflake.ID `json:"guild_id"`
}

func (d *Dispatcher) onMessageDelete(payload json.RawMessage) (notify.Notification, error) {
	deleted, err := decode[messageDelete](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearMessage(deleted.ChannelID, deleted.ID)
	d.indices.forgetMessage(deleted.ChannelID, deleted.ID)
	return notify.EntityDeleted{EntityRef: messageRef(deleted.GuildID, deleted.ChannelID, deleted.ID)}, nil
}

type messageDeleteBulk struct {
	IDs       []snowflake.ID `json:"ids"`
	ChannelID snowflake.ID   `json:"channel_id"`
	GuildID   snowflake.ID   `json:"guild_id"`
}

func (d *Dispatcher) onMessageDeleteBulk(payload json.RawMessage) (notify.Notification, error) {
	deleted, err := decode[messageDeleteBulk](payload)
	if err != nil {
		return nil, err
	}
	for _, messageID := range deleted.IDs {
		d.cache.ClearMessage(deleted.ChannelID, messageID)
		d.indices.forgetMessage(deleted.ChannelID, messageID)
	}
	return notify.MessagesDeleted{
		ChannelID:  deleted.ChannelID,
		GuildID:    deleted.GuildID,
		MessageIDs: deleted.IDs,
	}, nil
}

type reactionEvent struct {
	UserID    snowflake.ID   `json:"user_id"`
	ChannelID snowflake.ID   `json:"channel_id"`
	MessageID snowflake.ID   `json:"message_id"`
	GuildID   snowflake.ID   `json:"guild_id"`
	Emoji     schema.Emoji   `json:"emoji"`
	Member    *schema.Member `json:"member"`
}

func (r reactionEvent) key() reactionKey {
	return reactionKey{channelID: r.ChannelID, messageID: r.MessageID, emoji: r.Emoji.Key()}
}

func (r reactionEvent) notification() notify.Reaction {
	return notify.Reaction{
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		GuildID:   r.GuildID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Key(),
	}
}

// setReaction records that a user added (present) or removed a
// reaction. It reports whether that changes what was last recorded for
// the user, which is what makes a replayed event a no-op.
func (d *Dispatcher) setReaction(event reactionEvent, present bool) bool {
	key := event.key()
	users := d.indices.reactions[key]
	if users == nil {
		users = make(map[snowflake.ID]bool)
		d.indices.reactions[key] = users
	}
	if previous, seen := users[event.UserID]; seen && previous == present {
		return false
	}
	users[event.UserID] = present
	return true
}

// adjustReaction changes the cached message's count for the event's
// emoji by delta.
func (d *Dispatcher) adjustReaction(event reactionEvent, delta int) {
	message, ok := d.cache.Message(event.ChannelID, event.MessageID)
	if !ok {
		return
	}
	key := event.Emoji.Key()
	reactions := slices.Clone(message.Reactions)
	index := slices.IndexFunc(reactions, func(reaction schema.Reaction) bool { return reaction.Emoji.Key() == key })
	if index < 0 {
		if delta < 0 {
			return
		}
		reactions = append(reactions, schema.Reaction{Emoji: event.Emoji})
		index = len(reactions) - 1
	}
	reactions[index].Count += delta
	if event.UserID == d.currentUserID {
		reactions[index].Me = delta > 0
	}
	if reactions[index].Count <= 0 {
		reactions = slices.Delete(reactions, index, index+1)
	}
	message.Reactions = reactions
	d.cache.SetMessage(message)
}

func (d *Dispatcher) onReactionAdd(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[reactionEvent](payload)
	if err != nil {
		return nil, err
	}
	if event.Member != nil && !event.GuildID.IsZero() {
		d.storeMember(event.GuildID, *event.Member)
	}
	if d.setReaction(event, true) {
		d.adjustReaction(event, 1)
	}
	return notify.ReactionAdded{Reaction: event.notification()}, nil
}

func (d *Dispatcher) onReactionRemove(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[reactionEvent](payload)
	if err != nil {
		return nil, err
	}
	if d.setReaction(event, false) {
		d.adjustReaction(event, -1)
	}
	return notify.ReactionRemoved{Reaction: event.notification()}, nil
}

type messageAck struct {
	ChannelID    snowflake.ID `json:"channel_id"`
	MessageID    snowflake.ID `json:"message_id"`
	MentionCount int          `json:"mention_count"`
}

// onMessageAck moves the channel's read position. Mentions at or
// before the acknowledged message stop counting as unread.
func (d *Dispatcher) onMessageAck(payload json.RawMessage) (notify.Notification, error) {
	ack, err := decode[messageAck](payload)
	if err != nil {
		return nil, err
	}
	d.indices.acknowledge(ack.ChannelID, ack.MessageID, ack.MentionCount)
	count := d.UnreadMentions(ack.ChannelID)
	d.cache.SetReadState(schema.ReadState{
		ChannelID:     ack.ChannelID,
		LastMessageID: ack.MessageID,
		MentionCount:  count,
	})
	return notify.ReadStateChanged{
		ChannelID:     ack.ChannelID,
		LastMessageID: ack.MessageID,
		MentionCount:  count,
	}, nil
}

type typingStart struct {
	ChannelID snowflake.ID   `json:"channel_id"`
	GuildID   snowflake.ID   `json:"guild_id"`
	UserID    snowflake.ID   `json:"user_id"`
	Member    *schema.Member `json:"member"`
}

func (d *Dispatcher) onTypingStart(payload json.RawMessage) (notify.Notification, error) {
	typing, err := decode[typingStart](payload)
	if err != nil {
		return nil, err
	}
	if typing.Member != nil && !typing.GuildID.IsZero() {
		d.storeMember(typing.GuildID, *typing.Member)
	}
	return notify.TypingStarted{
		ChannelID: typing.ChannelID,
		GuildID:   typing.GuildID,
		UserID:    typing.UserID,
	}, nil
}
