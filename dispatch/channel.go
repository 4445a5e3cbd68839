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

// storeChannel writes a channel or thread. A thread whose payload
// carries the current user's thread membership is indexed as joined.
func (d *Dispatcher) storeChannel(channel schema.Channel) {
	for _, recipient := range channel.Recipients {
		d.cache.SetUser(recipient)
	}
	d.cache.SetChannel(channel)
	if channel.Type.IsThread() && channel.Member != nil {
		d.indices.joinedThreads.add(channel.ID)
	}
}

func channelRef(channel schema.Channel) notify.EntityRef {
	entity := notify.EntityChannel
	if channel.Type.IsThread() {
		entity = notify.EntityThread
	}
	return notify.EntityRef{Entity: entity, ID: channel.ID, GuildID: channel.GuildID}
}

func (d *Dispatcher) onChannelCreate(payload json.RawMessage) (notify.Notification, error) {
	channel, err := decode[schema.Channel](payload)
	if err != nil {
		return nil, err
	}
	d.storeChannel(channel)
	return notify.EntityCreated{EntityRef: channelRef(channel)}, nil
}

func (d *Dispatcher) onChannelUpdate(payload json.RawMessage) (notify.Notification, error) {
	channel, err := decode[schema.Channel](payload)
	if err != nil {
		return nil, err
	}
	// Updates do not carry the last message; keep what was cached.
	if cached, ok := d.cache.Channel(channel.ID); ok && channel.LastMessageID.IsZero() {
		channel.LastMessageID = cached.LastMessageID
	}
	d.storeChannel(channel)
	return notify.EntityUpdated{EntityRef: channelRef(channel)}, nil
}

func (d *Dispatcher) onChannelDelete(payload json.RawMessage) (notify.Notification, error) {
	channel, err := decode[schema.Channel](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearChannel(channel.ID)
	d.indices.forgetChannel(channel.ID)
	return notify.EntityDeleted{EntityRef: channelRef(channel)}, nil
}

type recipientEvent struct {
	ChannelID snowflake.ID `json:"channel_id"`
	User      schema.User  `json:"user"`
}

func (d *Dispatcher) onRecipientAdd(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[recipientEvent](payload)
	if err != nil {
		return nil, err
	}
	d.cache.SetUser(event.User)
	if channel, ok := d.cache.Channel(event.ChannelID); ok {
		present := slices.ContainsFunc(channel.Recipients, func(user schema.User) bool { return user.ID == event.User.ID })
		if !present {
			channel.Recipients = append(slices.Clone(channel.Recipients), event.User)
			d.cache.SetChannel(channel)
		}
	}
	return notify.EntityUpdated{EntityRef: notify.EntityRef{Entity: notify.EntityChannel, ID: event.ChannelID}}, nil
}

func (d *Dispatcher) onRecipientRemove(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[recipientEvent](payload)
	if err != nil {
		return nil, err
	}
	if channel, ok := d.cache.Channel(event.ChannelID); ok {
		remaining := slices.DeleteFunc(slices.Clone(channel.Recipients), func(user schema.User) bool { return user.ID == event.User.ID })
		if len(remaining) != len(channel.Recipients) {
			channel.Recipients = remaining
			d.cache.SetChannel(channel)
		}
	}
	return notify.EntityUpdated{EntityRef: notify.EntityRef{Entity: notify.EntityChannel, ID: event.ChannelID}}, nil
}

// onThreadCreate reports the payload's newly_created claim alongside
// whether the thread was already cached. The server sends this event
// for genuinely new threads and for existing threads the user just
// gained access to, and newly_created is not reliable in the second
// case, so neither value is reinterpreted here.
func (d *Dispatcher) onThreadCreate(payload json.RawMessage) (notify.Notification, error) {
	thread, err := decode[schema.Channel](payload)
	if err != nil {
		return nil, err
	}
	_, known := d.cache.Channel(thread.ID)
	d.storeChannel(thread)
	return notify.ThreadCreated{
		ThreadID:     thread.ID,
		GuildID:      thread.GuildID,
		ParentID:     thread.ParentID,
		NewlyCreated: thread.NewlyCreated,
		AlreadyKnown: known,
	}, nil
}

func (d *Dispatcher) onThreadUpdate(payload json.RawMessage) (notify.Notification, error) {
	thread, err := decode[schema.Channel](payload)
	if err != nil {
		return nil, err
	}
	if cached, ok := d.cache.Channel(thread.ID); ok && thread.Member == nil {
		thread.Member = cached.Member
	}
	d.storeChannel(thread)
	return notify.EntityUpdated{EntityRef: channelRef(thread)}, nil
}

func (d *Dispatcher) onThreadDelete(payload json.RawMessage) (notify.Notification, error) {
	thread, err := decode[schema.Channel](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearChannel(thread.ID)
	d.indices.forgetChannel(thread.ID)
	return notify.EntityDeleted{EntityRef: notify.EntityRef{
		Entity:  notify.EntityThread,
		ID:      thread.ID,
		GuildID: thread.GuildID,
	}}, nil
}

type threadListSync struct {
	GuildID    snowflake.ID          `json:"guild_id"`
	ChannelIDs []snowflake.ID        `json:"channel_ids"`
	Threads    []schema.Channel      `json:"threads"`
	Members    []schema.ThreadMember `json:"members"`
}

// onThreadListSync stores the active threads the server sent. Each
// ThreadMember in the payload is the current user's membership in the
// thread named by its ID.
func (d *Dispatcher) onThreadListSync(payload json.RawMessage) (notify.Notification, error) {
	list, err := decode[threadListSync](payload)
	if err != nil {
		return nil, err
	}
	joined := make(map[snowflake.ID]schema.ThreadMember, len(list.Members))
	for _, member := range list.Members {
		joined[member.ID] = member
	}
	threadIDs := make([]snowflake.ID, 0, len(list.Threads))
	for _, thread := range list.Threads {
		thread.GuildID = list.GuildID
		if member, ok := joined[thread.ID]; ok {
			thread.Member = &member
		}
		d.storeChannel(thread)
		threadIDs = append(threadIDs, thread.ID)
	}
	slices.Sort(threadIDs)
	return notify.ThreadsSynced{GuildID: list.GuildID, ThreadIDs: threadIDs}, nil
}

type threadMembersUpdate struct {
	ID               snowflake.ID          `json:"id"`
	GuildID          snowflake.ID          `json:"guild_id"`
	MemberCount      int                   `json:"member_count"`
	AddedMembers     []schema.ThreadMember `json:"added_members"`
	RemovedMemberIDs []snowflake.ID        `json:"removed_member_ids"`
}

// onThreadMembersUpdate tracks whether the current user joined or left
// the thread and refreshes the cached member count.
func (d *Dispatcher) onThreadMembersUpdate(payload json.RawMessage) (notify.Notification, error) {
	update, err := decode[threadMembersUpdate](payload)
	if err != nil {
		return nil, err
	}
	thread, cached := d.cache.Channel(update.ID)
	for _, member := range update.AddedMembers {
		if member.UserID == d.currentUserID {
			d.indices.joinedThreads.add(update.ID)
			added := member
			thread.Member = &added
		}
	}
	if slices.Contains(update.RemovedMemberIDs, d.currentUserID) {
		d.indices.joinedThreads.remove(update.ID)
		thread.Member = nil
	}
	if cached {
		thread.MemberCount = update.MemberCount
		d.cache.SetChannel(thread)
	}
	return notify.EntityUpdated{EntityRef: notify.EntityRef{
		Entity:  notify.EntityThread,
		ID:      update.ID,
		GuildID: update.GuildID,
	}}, nil
}
