// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

type guildUser struct {
	guild snowflake.ID
	user  snowflake.ID
}

// tables is the stored state. Every field is guarded by Memory.mu.
type tables struct {
	currentUser   *schema.User
	users         map[snowflake.ID]schema.User
	guilds        map[snowflake.ID]schema.Guild
	roles         map[snowflake.ID]map[snowflake.ID]schema.Role
	channels      map[snowflake.ID]schema.Channel
	members       map[snowflake.ID]map[snowflake.ID]schema.Member
	messages      map[snowflake.ID]map[snowflake.ID]schema.Message
	presences     map[guildUser]schema.Presence
	voiceStates   map[guildUser]schema.VoiceState
	readStates    map[snowflake.ID]schema.ReadState
	settings      map[snowflake.ID]schema.GuildSettings
	emojis        map[snowflake.ID][]schema.Emoji
	relationships map[snowflake.ID]schema.Relationship
	bans          map[guildUser]schema.Ban
	invites       map[string]schema.Invite
}

// Memory is an in-memory Store. It is safe for one writer and any
// number of concurrent readers.
type Memory struct {
	mu     sync.RWMutex
	tables tables

	// pending holds writes staged by an open transaction. Only the
	// writing goroutine touches pending and depth.
	pending []func(*tables)
	depth   int
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{tables: tables{
		users:         make(map[snowflake.ID]schema.User),
		guilds:        make(map[snowflake.ID]schema.Guild),
		roles:         make(map[snowflake.ID]map[snowflake.ID]schema.Role),
		channels:      make(map[snowflake.ID]schema.Channel),
		members:       make(map[snowflake.ID]map[snowflake.ID]schema.Member),
		messages:      make(map[snowflake.ID]map[snowflake.ID]schema.Message),
		presences:     make(map[guildUser]schema.Presence),
		voiceStates:   make(map[guildUser]schema.VoiceState),
		readStates:    make(map[snowflake.ID]schema.ReadState),
		settings:      make(map[snowflake.ID]schema.GuildSettings),
		emojis:        make(map[snowflake.ID][]schema.Emoji),
		relationships: make(map[snowflake.ID]schema.Relationship),
		bans:          make(map[guildUser]schema.Ban),
		invites:       make(map[string]schema.Invite),
	}}
}

// Begin opens a (possibly nested) transaction.
func (m *Memory) Begin() { m.depth++ }

// End closes a transaction. The outermost End applies every staged
// write under one lock. An End without a Begin is ignored.
func (m *Memory) End() {
	if m.depth == 0 {
		return
	}
	m.depth--
	if m.depth > 0 {
		return
	}
	staged := m.pending
	m.pending = nil
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, write := range staged {
		write(&m.tables)
	}
}

// write applies a mutation now, or stages it inside a transaction.
func (m *Memory) write(mutation func(*tables)) {
	if m.depth > 0 {
		m.pending = append(m.pending, mutation)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mutation(&m.tables)
}

func (m *Memory) SetCurrentUser(user schema.User) {
	m.write(func(t *tables) {
		t.currentUser = &user
		t.users[user.ID] = user
	})
}

func (m *Memory) SetUser(user schema.User) {
	m.write(func(t *tables) {
		t.users[user.ID] = user
		if t.currentUser != nil && t.currentUser.ID == user.ID {
			t.currentUser = &user
		}
	})
}

func (m *Memory) SetGuild(guild schema.Guild) {
	scalar := guild.Scalar()
	m.write(func(t *tables) { t.guilds[scalar.ID] = scalar })
}

func (m *Memory) ClearGuild(guildID snowflake.ID) {
	m.write(func(t *tables) {
		delete(t.guilds, guildID)
		delete(t.roles, guildID)
		delete(t.members, guildID)
		delete(t.emojis, guildID)
		delete(t.settings, guildID)
		for channelID, channel := range t.channels {
			if channel.GuildID == guildID {
				t.clearChannel(channelID)
			}
		}
		for key := range t.presences {
			if key.guild == guildID {
				delete(t.presences, key)
			}
		}
		for key := range t.voiceStates {
			if key.guild == guildID {
				delete(t.voiceStates, key)
			}
		}
		for key := range t.bans {
			if key.guild == guildID {
				delete(t.bans, key)
			}
		}
	})
}

func (m *Memory) SetRole(guildID snowflake.ID, role schema.Role) {
	m.write(func(t *tables) {
		roles := t.roles[guildID]
		if roles == nil {
			roles = make(map[snowflake.ID]schema.Role)
			t.roles[guildID] = roles
		}
		roles[role.ID] = role
	})
}

func (m *Memory) ClearRole(guildID, roleID snowflake.ID) {
	m.write(func(t *tables) { delete(t.roles[guildID], roleID) })
}

func (m *Memory) SetChannel(channel schema.Channel) {
	m.write(func(t *tables) { t.channels[channel.ID] = channel })
}

func (m *Memory) ClearChannel(channelID snowflake.ID) {
	m.write(func(t *tables) { t.clearChannel(channelID) })
}

func (t *tables) clearChannel(channelID snowflake.ID) {
	delete(t.channels, channelID)
	delete(t.messages, channelID)
	delete(t.readStates, channelID)
}

func (m *Memory) SetMember(guildID snowflake.ID, member schema.Member) {
	m.write(func(t *tables) {
		if member.User == nil {
			return
		}
		members := t.members[guildID]
		if members == nil {
			members = make(map[snowflake.ID]schema.Member)
			t.members[guildID] = members
		}
		member.GuildID = guildID
		members[member.User.ID] = member
		t.users[member.User.ID] = *member.User
	})
}

func (m *Memory) ClearMember(guildID, userID snowflake.ID) {
	m.write(func(t *tables) { delete(t.members[guildID], userID) })
}

func (m *Memory) SetMessage(message schema.Message) {
	m.write(func(t *tables) {
		messages := t.messages[message.ChannelID]
		if messages == nil {
			messages = make(map[snowflake.ID]schema.Message)
			t.messages[message.ChannelID] = messages
		}
		messages[message.ID] = message
	})
}

func (m *Memory) ClearMessage(channelID, messageID snowflake.ID) {
	m.write(func(t *tables) { delete(t.messages[channelID], messageID) })
}

func (m *Memory) SetPresence(presence schema.Presence) {
	m.write(func(t *tables) {
		t.presences[guildUser{presence.GuildID, presence.User.ID}] = presence
	})
}

func (m *Memory) SetVoiceState(state schema.VoiceState) {
	m.write(func(t *tables) {
		t.voiceStates[guildUser{state.GuildID, state.UserID}] = state
	})
}

func (m *Memory) ClearVoiceState(guildID, userID snowflake.ID) {
	m.write(func(t *tables) { delete(t.voiceStates, guildUser{guildID, userID}) })
}

func (m *Memory) SetReadState(state schema.ReadState) {
	m.write(func(t *tables) { t.readStates[state.ChannelID] = state })
}

func (m *Memory) SetGuildSettings(settings schema.GuildSettings) {
	m.write(func(t *tables) { t.settings[settings.GuildID] = settings })
}

func (m *Memory) SetEmojis(guildID snowflake.ID, emojis []schema.Emoji) {
	emojis = slices.Clone(emojis)
	m.write(func(t *tables) { t.emojis[guildID] = emojis })
}

func (m *Memory) SetRelationship(relationship schema.Relationship) {
	m.write(func(t *tables) { t.relationships[relationship.ID] = relationship })
}

func (m *Memory) ClearRelationship(userID snowflake.ID) {
	m.write(func(t *tables) { delete(t.relationships, userID) })
}

func (m *Memory) SetBan(ban schema.Ban) {
	m.write(func(t *tables) { t.bans[guildUser{ban.GuildID, ban.User.ID}] = ban })
}

func (m *Memory) ClearBan(guildID, userID snowflake.ID) {
	m.write(func(t *tables) { delete(t.bans, guildUser{guildID, userID}) })
}

func (m *Memory) SetInvite(invite schema.Invite) {
	m.write(func(t *tables) { t.invites[invite.Code] = invite })
}

func (m *Memory) ClearInvite(code string) {
	m.write(func(t *tables) { delete(t.invites, code) })
}

// Reads.

func (m *Memory) CurrentUser() (schema.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tables.currentUser == nil {
		return schema.User{}, false
	}
	return *m.tables.currentUser, true
}

func (m *Memory) User(userID snowflake.ID) (schema.User, bool) {
	return lookup(m, m.tables.users, userID)
}

func (m *Memory) Guild(guildID snowflake.ID) (schema.Guild, bool) {
	return lookup(m, m.tables.guilds, guildID)
}

func (m *Memory) Guilds() []schema.Guild {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.SortedFunc(maps.Values(m.tables.guilds), func(a, b schema.Guild) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func (m *Memory) Role(guildID, roleID snowflake.ID) (schema.Role, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.tables.roles[guildID][roleID]
	return role, ok
}

// Roles returns a guild's roles ordered by position, then ID.
func (m *Memory) Roles(guildID snowflake.ID) []schema.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roles := m.tables.roles[guildID]
	if roles == nil {
		return nil
	}
	return slices.SortedFunc(maps.Values(roles), func(a, b schema.Role) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
}

func (m *Memory) Channel(channelID snowflake.ID) (schema.Channel, bool) {
	return lookup(m, m.tables.channels, channelID)
}

// Channels returns a guild's channels and threads ordered by position,
// then ID.
func (m *Memory) Channels(guildID snowflake.ID) []schema.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var channels []schema.Channel
	for _, channel := range m.tables.channels {
		if channel.GuildID == guildID {
			channels = append(channels, channel)
		}
	}
	slices.SortFunc(channels, func(a, b schema.Channel) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return channels
}

func (m *Memory) Overwrites(channelID snowflake.ID) []schema.PermissionOverwrite {
	channel, ok := m.Channel(channelID)
	if !ok {
		return nil
	}
	return slices.Clone(channel.PermissionOverwrites)
}

func (m *Memory) Member(guildID, userID snowflake.ID) (schema.Member, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.tables.members[guildID][userID]
	return member, ok
}

// Members returns a guild's members ordered by user ID.
func (m *Memory) Members(guildID snowflake.ID) []schema.Member {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.tables.members[guildID]
	if members == nil {
		return nil
	}
	return slices.SortedFunc(maps.Values(members), func(a, b schema.Member) int {
		return cmp.Compare(a.UserID(), b.UserID())
	})
}

func (m *Memory) Message(channelID, messageID snowflake.ID) (schema.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	message, ok := m.tables.messages[channelID][messageID]
	return message, ok
}

// Messages returns a channel's cached messages oldest first.
func (m *Memory) Messages(channelID snowflake.ID) []schema.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	messages := m.tables.messages[channelID]
	if messages == nil {
		return nil
	}
	return slices.SortedFunc(maps.Values(messages), func(a, b schema.Message) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func (m *Memory) Presence(guildID, userID snowflake.ID) (schema.Presence, bool) {
	return lookup(m, m.tables.presences, guildUser{guildID, userID})
}

func (m *Memory) VoiceState(guildID, userID snowflake.ID) (schema.VoiceState, bool) {
	return lookup(m, m.tables.voiceStates, guildUser{guildID, userID})
}

func (m *Memory) ReadState(channelID snowflake.ID) (schema.ReadState, bool) {
	return lookup(m, m.tables.readStates, channelID)
}

func (m *Memory) GuildSettings(guildID snowflake.ID) (schema.GuildSettings, bool) {
	return lookup(m, m.tables.settings, guildID)
}

func (m *Memory) Emojis(guildID snowflake.ID) []schema.Emoji {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tables.emojis[guildID])
}

func (m *Memory) Relationship(userID snowflake.ID) (schema.Relationship, bool) {
	return lookup(m, m.tables.relationships, userID)
}

func (m *Memory) Relationships() []schema.Relationship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.SortedFunc(maps.Values(m.tables.relationships), func(a, b schema.Relationship) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func (m *Memory) Ban(guildID, userID snowflake.ID) (schema.Ban, bool) {
	return lookup(m, m.tables.bans, guildUser{guildID, userID})
}

func (m *Memory) Invite(code string) (schema.Invite, bool) {
	return lookup(m, m.tables.invites, code)
}

// lookup reads one map entry under the read lock. The map argument is
// evaluated by the caller before the lock is taken, which is safe
// because the table maps are never reassigned.
func lookup[K comparable, V any](m *Memory, table map[K]V, key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := table[key]
	return value, ok
}
