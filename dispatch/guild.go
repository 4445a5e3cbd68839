// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"encoding/json"

	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
	"github.com/bureau-foundation/switchboard/notify"
)

// storeGuild writes a full guild object: its scalar fields and every
// nested collection the payload carries.
func (d *Dispatcher) storeGuild(guild schema.Guild) {
	d.cache.SetGuild(guild.Scalar())
	for _, role := range guild.Roles {
		d.cache.SetRole(guild.ID, role)
	}
	for _, channel := range guild.Channels {
		channel.GuildID = guild.ID
		d.storeChannel(channel)
	}
	for _, thread := range guild.Threads {
		thread.GuildID = guild.ID
		d.storeChannel(thread)
	}
	for _, member := range guild.Members {
		d.storeMember(guild.ID, member)
	}
	for _, presence := range guild.Presences {
		presence.GuildID = guild.ID
		d.cache.SetPresence(presence)
	}
	for _, state := range guild.VoiceStates {
		state.GuildID = guild.ID
		d.storeVoiceState(state)
	}
	if guild.Emojis != nil {
		d.cache.SetEmojis(guild.ID, guild.Emojis)
	}
}

func guildRef(guildID snowflake.ID) notify.EntityRef {
	return notify.EntityRef{Entity: notify.EntityGuild, ID: guildID}
}

// onGuildCreate handles a joined guild, a guild loaded lazily after
// READY, or a guild becoming available again after an outage. The last
// two were cached as unavailable stubs and are reported as created
// along with the first.
func (d *Dispatcher) onGuildCreate(payload json.RawMessage) (notify.Notification, error) {
	guild, err := decode[schema.Guild](payload)
	if err != nil {
		return nil, err
	}
	cached, known := d.cache.Guild(guild.ID)
	d.storeGuild(guild)
	if known && !cached.Unavailable {
		return notify.EntityUpdated{EntityRef: guildRef(guild.ID)}, nil
	}
	return notify.EntityCreated{EntityRef: guildRef(guild.ID)}, nil
}

func (d *Dispatcher) onGuildUpdate(payload json.RawMessage) (notify.Notification, error) {
	guild, err := decode[schema.Guild](payload)
	if err != nil {
		return nil, err
	}
	d.storeGuild(guild)
	return notify.EntityUpdated{EntityRef: guildRef(guild.ID)}, nil
}

type guildDelete struct {
	ID          snowflake.ID `json:"id"`
	Unavailable bool         `json:"unavailable"`
}

// onGuildDelete distinguishes an outage (the guild stays cached,
// marked unavailable) from leaving the guild (everything under it is
// removed).
func (d *Dispatcher) onGuildDelete(payload json.RawMessage) (notify.Notification, error) {
	deleted, err := decode[guildDelete](payload)
	if err != nil {
		return nil, err
	}
	if deleted.Unavailable {
		guild, ok := d.cache.Guild(deleted.ID)
		if !ok {
			guild = schema.Guild{ID: deleted.ID}
		}
		guild.Unavailable = true
		d.cache.SetGuild(guild)
	} else {
		for _, channel := range d.cache.Channels(deleted.ID) {
			d.indices.forgetChannel(channel.ID)
		}
		d.cache.ClearGuild(deleted.ID)
		delete(d.indices.guildMembers, deleted.ID)
		delete(d.indices.mutedChannels, deleted.ID)
		d.indices.mutedGuilds.remove(deleted.ID)
		for key, channelID := range d.indices.voiceLocation {
			if key.guildID == deleted.ID {
				removeFrom(d.indices.voiceChannels, channelID, key.userID)
				delete(d.indices.voiceLocation, key)
			}
		}
	}
	return notify.EntityDeleted{EntityRef: guildRef(deleted.ID), Unavailable: deleted.Unavailable}, nil
}

type roleEvent struct {
	GuildID snowflake.ID `json:"guild_id"`
	Role    schema.Role  `json:"role"`
}

type roleDelete struct {
	GuildID snowflake.ID `json:"guild_id"`
	RoleID  snowflake.ID `json:"role_id"`
}

func roleRef(guildID, roleID snowflake.ID) notify.EntityRef {
	return notify.EntityRef{Entity: notify.EntityRole, ID: roleID, GuildID: guildID}
}

func (d *Dispatcher) onRoleCreate(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[roleEvent](payload)
	if err != nil {
		return nil, err
	}
	d.cache.SetRole(event.GuildID, event.Role)
	return notify.EntityCreated{EntityRef: roleRef(event.GuildID, event.Role.ID)}, nil
}

func (d *Dispatcher) onRoleUpdate(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[roleEvent](payload)
	if err != nil {
		return nil, err
	}
	d.cache.SetRole(event.GuildID, event.Role)
	return notify.EntityUpdated{EntityRef: roleRef(event.GuildID, event.Role.ID)}, nil
}

func (d *Dispatcher) onRoleDelete(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[roleDelete](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearRole(event.GuildID, event.RoleID)
	return notify.EntityDeleted{EntityRef: roleRef(event.GuildID, event.RoleID)}, nil
}

// storeMember writes a member and its user and indexes the membership.
// A member without a user cannot be keyed and is skipped.
func (d *Dispatcher) storeMember(guildID snowflake.ID, member schema.Member) {
	userID := member.UserID()
	if userID.IsZero() {
		return
	}
	member.GuildID = guildID
	d.cache.SetUser(*member.User)
	d.cache.SetMember(guildID, member)
	addTo(d.indices.guildMembers, guildID, userID)
}

func memberRef(guildID, userID snowflake.ID) notify.EntityRef {
	return notify.EntityRef{Entity: notify.EntityMember, ID: userID, GuildID: guildID}
}

func (d *Dispatcher) onMemberAdd(payload json.RawMessage) (notify.Notification, error) {
	member, err := decode[schema.Member](payload)
	if err != nil {
		return nil, err
	}
	d.storeMember(member.GuildID, member)
	return notify.EntityCreated{EntityRef: memberRef(member.GuildID, member.UserID())}, nil
}

func (d *Dispatcher) onMemberUpdate(payload json.RawMessage) (notify.Notification, error) {
	member, err := decode[schema.Member](payload)
	if err != nil {
		return nil, err
	}
	// The update omits fields such as the join time; keep the cached
	// values for those.
	if cached, ok := d.cache.Member(member.GuildID, member.UserID()); ok && member.JoinedAt == nil {
		member.JoinedAt = cached.JoinedAt
	}
	d.storeMember(member.GuildID, member)
	return notify.EntityUpdated{EntityRef: memberRef(member.GuildID, member.UserID())}, nil
}

type memberRemove struct {
	GuildID snowflake.ID `json:"guild_id"`
	User    schema.User  `json:"user"`
}

func (d *Dispatcher) onMemberRemove(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[memberRemove](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearMember(event.GuildID, event.User.ID)
	removeFrom(d.indices.guildMembers, event.GuildID, event.User.ID)
	return notify.EntityDeleted{EntityRef: memberRef(event.GuildID, event.User.ID)}, nil
}

type membersChunk struct {
	GuildID    snowflake.ID      `json:"guild_id"`
	Members    []schema.Member   `json:"members"`
	ChunkIndex int               `json:"chunk_index"`
	ChunkCount int               `json:"chunk_count"`
	NotFound   []snowflake.ID    `json:"not_found"`
	Presences  []schema.Presence `json:"presences"`
	Nonce      string            `json:"nonce"`
}

func (d *Dispatcher) onMembersChunk(payload json.RawMessage) (notify.Notification, error) {
	chunk, err := decode[membersChunk](payload)
	if err != nil {
		return nil, err
	}
	for _, member := range chunk.Members {
		d.storeMember(chunk.GuildID, member)
	}
	for _, presence := range chunk.Presences {
		presence.GuildID = chunk.GuildID
		d.cache.SetPresence(presence)
	}
	return notify.MembersChunk{
		GuildID:    chunk.GuildID,
		Nonce:      chunk.Nonce,
		ChunkIndex: chunk.ChunkIndex,
		ChunkCount: chunk.ChunkCount,
		Members:    len(chunk.Members),
		NotFound:   len(chunk.NotFound),
	}, nil
}

func banRef(guildID, userID snowflake.ID) notify.EntityRef {
	return notify.EntityRef{Entity: notify.EntityBan, ID: userID, GuildID: guildID}
}

func (d *Dispatcher) onBanAdd(payload json.RawMessage) (notify.Notification, error) {
	ban, err := decode[schema.Ban](payload)
	if err != nil {
		return nil, err
	}
	d.cache.SetBan(ban)
	return notify.EntityCreated{EntityRef: banRef(ban.GuildID, ban.User.ID)}, nil
}

func (d *Dispatcher) onBanRemove(payload json.RawMessage) (notify.Notification, error) {
	ban, err := decode[schema.Ban](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearBan(ban.GuildID, ban.User.ID)
	return notify.EntityDeleted{EntityRef: banRef(ban.GuildID, ban.User.ID)}, nil
}

type emojisUpdate struct {
	GuildID snowflake.ID   `json:"guild_id"`
	Emojis  []schema.Emoji `json:"emojis"`
}

func (d *Dispatcher) onEmojisUpdate(payload json.RawMessage) (notify.Notification, error) {
	event, err := decode[emojisUpdate](payload)
	if err != nil {
		return nil, err
	}
	if event.Emojis == nil {
		event.Emojis = []schema.Emoji{}
	}
	d.cache.SetEmojis(event.GuildID, event.Emojis)
	return notify.EntityUpdated{EntityRef: notify.EntityRef{Entity: notify.EntityEmojis, GuildID: event.GuildID}}, nil
}

func inviteRef(invite schema.Invite) notify.EntityRef {
	return notify.EntityRef{
		Entity:    notify.EntityInvite,
		GuildID:   invite.GuildID,
		ChannelID: invite.ChannelID,
		Code:      invite.Code,
	}
}

func (d *Dispatcher) onInviteCreate(payload json.RawMessage) (notify.Notification, error) {
	invite, err := decode[schema.Invite](payload)
	if err != nil {
		return nil, err
	}
	if invite.Inviter != nil {
		d.cache.SetUser(*invite.Inviter)
	}
	d.cache.SetInvite(invite)
	return notify.EntityCreated{EntityRef: inviteRef(invite)}, nil
}

func (d *Dispatcher) onInviteDelete(payload json.RawMessage) (notify.Notification, error) {
	invite, err := decode[schema.Invite](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearInvite(invite.Code)
	return notify.EntityDeleted{EntityRef: inviteRef(invite)}, nil
}
