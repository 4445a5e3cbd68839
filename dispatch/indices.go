// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"cmp"
	"maps"
	"slices"

	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

type set[T cmp.Ordered] map[T]struct{}

// add reports whether value was absent.
func (s set[T]) add(value T) bool {
	if _, ok := s[value]; ok {
		return false
	}
	s[value] = struct{}{}
	return true
}

// remove reports whether value was present.
func (s set[T]) remove(value T) bool {
	if _, ok := s[value]; !ok {
		return false
	}
	delete(s, value)
	return true
}

func (s set[T]) has(value T) bool {
	_, ok := s[value]
	return ok
}

func (s set[T]) sorted() []T {
	if len(s) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(s))
}

func addTo[K comparable, V cmp.Ordered](index map[K]set[V], key K, value V) bool {
	members := index[key]
	if members == nil {
		members = make(set[V])
		index[key] = members
	}
	return members.add(value)
}

// removeFrom drops the key once its set is empty, so that an index
// looks the same whether or not a key was ever populated.
func removeFrom[K comparable, V cmp.Ordered](index map[K]set[V], key K, value V) bool {
	members := index[key]
	if !members.remove(value) {
		return false
	}
	if len(members) == 0 {
		delete(index, key)
	}
	return true
}

type reactionKey struct {
	channelID snowflake.ID
	messageID snowflake.ID
	emoji     string
}

type guildUser struct {
	guildID snowflake.ID
	userID  snowflake.ID
}

// mentions tracks unread mentions in one channel: a count inherited
// from the last read state plus the mentioning messages seen since.
type mentions struct {
	baseline int
	unread   set[snowflake.ID]
}

func (m mentions) count() int { return m.baseline + len(m.unread) }

// indices is derived state the cache does not own.
type indices struct {
	guildMembers    map[snowflake.ID]set[snowflake.ID]
	channelMessages map[snowflake.ID]set[snowflake.ID]

	// reactions records, per reaction, which users were last seen
	// adding (true) or removing (false) it. Keeping removals makes a
	// replayed removal a no-op instead of a second decrement.
	reactions map[reactionKey]map[snowflake.ID]bool

	mentions      map[snowflake.ID]mentions
	mutedGuilds   set[snowflake.ID]
	mutedChannels map[snowflake.ID]set[snowflake.ID]
	joinedThreads set[snowflake.ID]

	voiceChannels map[snowflake.ID]set[snowflake.ID]
	voiceLocation map[guildUser]snowflake.ID
}

func newIndices() indices {
	return indices{
		guildMembers:    make(map[snowflake.ID]set[snowflake.ID]),
		channelMessages: make(map[snowflake.ID]set[snowflake.ID]),
		reactions:       make(map[reactionKey]map[snowflake.ID]bool),
		mentions:        make(map[snowflake.ID]mentions),
		mutedGuilds:     make(set[snowflake.ID]),
		mutedChannels:   make(map[snowflake.ID]set[snowflake.ID]),
		joinedThreads:   make(set[snowflake.ID]),
		voiceChannels:   make(map[snowflake.ID]set[snowflake.ID]),
		voiceLocation:   make(map[guildUser]snowflake.ID),
	}
}

// forgetChannel drops everything indexed under a removed channel.
func (x *indices) forgetChannel(channelID snowflake.ID) {
	delete(x.channelMessages, channelID)
	delete(x.mentions, channelID)
	delete(x.voiceChannels, channelID)
	x.joinedThreads.remove(channelID)
	for key := range x.reactions {
		if key.channelID == channelID {
			delete(x.reactions, key)
		}
	}
	for guildID := range x.mutedChannels {
		removeFrom(x.mutedChannels, guildID, channelID)
	}
}

// forgetMessage drops a deleted message's reactions and mention.
func (x *indices) forgetMessage(channelID, messageID snowflake.ID) {
	removeFrom(x.channelMessages, channelID, messageID)
	if state, ok := x.mentions[channelID]; ok {
		state.unread.remove(messageID)
	}
	for key := range x.reactions {
		if key.channelID == channelID && key.messageID == messageID {
			delete(x.reactions, key)
		}
	}
}

// addMention records a mentioning message and reports whether it is
// new.
func (x *indices) addMention(channelID, messageID snowflake.ID) bool {
	state, ok := x.mentions[channelID]
	if !ok {
		state = mentions{unread: make(set[snowflake.ID])}
		x.mentions[channelID] = state
	}
	return state.unread.add(messageID)
}

// acknowledge resets a channel's mentions to what the server reports
// as still unread after messageID.
func (x *indices) acknowledge(channelID, messageID snowflake.ID, remaining int) {
	state, ok := x.mentions[channelID]
	if !ok {
		state = mentions{unread: make(set[snowflake.ID])}
	}
	for id := range state.unread {
		if id <= messageID {
			delete(state.unread, id)
		}
	}
	state.baseline = remaining
	x.mentions[channelID] = state
}

// moveVoice places a user in a voice channel, or removes them when
// channelID is zero.
func (x *indices) moveVoice(guildID, userID, channelID snowflake.ID) {
	key := guildUser{guildID: guildID, userID: userID}
	if previous, ok := x.voiceLocation[key]; ok {
		removeFrom(x.voiceChannels, previous, userID)
		delete(x.voiceLocation, key)
	}
	if channelID.IsZero() {
		return
	}
	addTo(x.voiceChannels, channelID, userID)
	x.voiceLocation[key] = channelID
}

// GuildMembers returns the ids of the guild's known members in
// ascending order.
func (d *Dispatcher) GuildMembers(guildID snowflake.ID) []snowflake.ID {
	return d.indices.guildMembers[guildID].sorted()
}

// MemberCount returns the number of known members of the guild.
func (d *Dispatcher) MemberCount(guildID snowflake.ID) int {
	return len(d.indices.guildMembers[guildID])
}

// ChannelMessages returns the ids of the channel's known messages in
// ascending (chronological) order.
func (d *Dispatcher) ChannelMessages(channelID snowflake.ID) []snowflake.ID {
	return d.indices.channelMessages[channelID].sorted()
}

// ReactionUsers returns the users seen reacting to a message with
// emoji, identified by [schema.Emoji.Key].
func (d *Dispatcher) ReactionUsers(channelID, messageID snowflake.ID, emoji string) []snowflake.ID {
	var users []snowflake.ID
	for userID, present := range d.indices.reactions[reactionKey{channelID, messageID, emoji}] {
		if present {
			users = append(users, userID)
		}
	}
	slices.Sort(users)
	return users
}

// UnreadMentions returns the number of unread mentions of the current
// user in the channel.
func (d *Dispatcher) UnreadMentions(channelID snowflake.ID) int {
	return d.indices.mentions[channelID].count()
}

// GuildMuted reports whether the user muted the guild.
func (d *Dispatcher) GuildMuted(guildID snowflake.ID) bool {
	return d.indices.mutedGuilds.has(guildID)
}

// ChannelMuted reports whether the user muted the channel.
func (d *Dispatcher) ChannelMuted(channelID snowflake.ID) bool {
	for _, channels := range d.indices.mutedChannels {
		if channels.has(channelID) {
			return true
		}
	}
	return false
}

// JoinedThreads returns the threads the current user is a member of.
func (d *Dispatcher) JoinedThreads() []snowflake.ID {
	return d.indices.joinedThreads.sorted()
}

// VoiceChannelUsers returns the users connected to a voice channel.
func (d *Dispatcher) VoiceChannelUsers(channelID snowflake.ID) []snowflake.ID {
	return d.indices.voiceChannels[channelID].sorted()
}
