// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"encoding/json"

	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
	"github.com/bureau-foundation/switchboard/notify"
)

type readyPayload struct {
	SessionID       string                        `json:"session_id"`
	User            schema.User                   `json:"user"`
	Guilds          []schema.Guild                `json:"guilds"`
	PrivateChannels []schema.Channel              `json:"private_channels"`
	Relationships   []schema.Relationship         `json:"relationships"`
	Presences       []schema.Presence             `json:"presences"`
	ReadState       entries[schema.ReadState]     `json:"read_state"`
	GuildSettings   entries[schema.GuildSettings] `json:"user_guild_settings"`
}

// onReady loads the session's initial state. READY describes the whole
// world: indices are rebuilt from nothing and cached guilds, private
// channels and relationships it does not list are evicted.
func (d *Dispatcher) onReady(payload json.RawMessage) (notify.Notification, error) {
	ready, err := decode[readyPayload](payload)
	if err != nil {
		return nil, err
	}

	d.sessionID = ready.SessionID
	d.currentUserID = ready.User.ID
	d.indices = newIndices()
	d.evictStale(ready)

	d.cache.SetCurrentUser(ready.User)
	d.cache.SetUser(ready.User)
	for _, guild := range ready.Guilds {
		d.storeGuild(guild)
	}
	for _, channel := range ready.PrivateChannels {
		d.storeChannel(channel)
	}
	for _, relationship := range ready.Relationships {
		d.storeRelationship(relationship)
	}
	for _, presence := range ready.Presences {
		d.cache.SetPresence(presence)
	}
	for _, state := range ready.ReadState {
		d.cache.SetReadState(state)
		d.indices.acknowledge(state.ChannelID, state.LastMessageID, state.MentionCount)
	}
	for _, settings := range ready.GuildSettings {
		d.storeGuildSettings(settings)
	}

	d.logger.Debug("session ready",
		"session_id", ready.SessionID,
		"guilds", len(ready.Guilds),
		"private_channels", len(ready.PrivateChannels),
	)
	return notify.Connected{SessionID: ready.SessionID}, nil
}

// evictStale clears what a previous session cached and the new READY
// no longer lists, such as a guild left while disconnected.
func (d *Dispatcher) evictStale(ready readyPayload) {
	guilds := make(map[snowflake.ID]bool, len(ready.Guilds))
	for _, guild := range ready.Guilds {
		guilds[guild.ID] = true
	}
	for _, guild := range d.cache.Guilds() {
		if !guilds[guild.ID] {
			d.cache.ClearGuild(guild.ID)
		}
	}

	private := make(map[snowflake.ID]bool, len(ready.PrivateChannels))
	for _, channel := range ready.PrivateChannels {
		private[channel.ID] = true
	}
	for _, channel := range d.cache.Channels(0) {
		if !private[channel.ID] {
			d.cache.ClearChannel(channel.ID)
		}
	}

	relationships := make(map[snowflake.ID]bool, len(ready.Relationships))
	for _, relationship := range ready.Relationships {
		relationships[relationship.ID] = true
	}
	for _, relationship := range d.cache.Relationships() {
		if !relationships[relationship.ID] {
			d.cache.ClearRelationship(relationship.ID)
		}
	}
}

// onResumed confirms a resume. Replayed events have already been
// dispatched, so there is nothing to load.
func (d *Dispatcher) onResumed(json.RawMessage) (notify.Notification, error) {
	return notify.Connected{SessionID: d.sessionID, Resumed: true}, nil
}

func (d *Dispatcher) onUserUpdate(payload json.RawMessage) (notify.Notification, error) {
	user, err := decode[schema.User](payload)
	if err != nil {
		return nil, err
	}
	if user.ID == d.currentUserID || d.currentUserID.IsZero() {
		d.currentUserID = user.ID
		d.cache.SetCurrentUser(user)
	}
	d.cache.SetUser(user)
	return notify.EntityUpdated{EntityRef: notify.EntityRef{Entity: notify.EntityUser, ID: user.ID}}, nil
}

func (d *Dispatcher) onGuildSettingsUpdate(payload json.RawMessage) (notify.Notification, error) {
	settings, err := decode[schema.GuildSettings](payload)
	if err != nil {
		return nil, err
	}
	d.storeGuildSettings(settings)
	return notify.EntityUpdated{EntityRef: notify.EntityRef{
		Entity:  notify.EntityGuildSettings,
		GuildID: settings.GuildID,
	}}, nil
}

// storeGuildSettings replaces the guild's notification settings. The
// channel overrides in settings are complete: channels not listed are
// no longer muted.
func (d *Dispatcher) storeGuildSettings(settings schema.GuildSettings) {
	d.cache.SetGuildSettings(settings)
	if settings.Muted {
		d.indices.mutedGuilds.add(settings.GuildID)
	} else {
		d.indices.mutedGuilds.remove(settings.GuildID)
	}
	delete(d.indices.mutedChannels, settings.GuildID)
	for _, override := range settings.ChannelOverrides {
		if override.Muted {
			addTo(d.indices.mutedChannels, settings.GuildID, override.ChannelID)
		}
	}
}

type relationshipRemove struct {
	ID snowflake.ID `json:"id"`
}

func (d *Dispatcher) onRelationshipAdd(payload json.RawMessage) (notify.Notification, error) {
	relationship, err := decode[schema.Relationship](payload)
	if err != nil {
		return nil, err
	}
	d.storeRelationship(relationship)
	return notify.EntityCreated{EntityRef: notify.EntityRef{Entity: notify.EntityRelationship, ID: relationship.ID}}, nil
}

func (d *Dispatcher) onRelationshipRemove(payload json.RawMessage) (notify.Notification, error) {
	removed, err := decode[relationshipRemove](payload)
	if err != nil {
		return nil, err
	}
	d.cache.ClearRelationship(removed.ID)
	return notify.EntityDeleted{EntityRef: notify.EntityRef{Entity: notify.EntityRelationship, ID: removed.ID}}, nil
}

func (d *Dispatcher) storeRelationship(relationship schema.Relationship) {
	if relationship.User != nil {
		d.cache.SetUser(*relationship.User)
	}
	d.cache.SetRelationship(relationship)
}

func (d *Dispatcher) onPresenceUpdate(payload json.RawMessage) (notify.Notification, error) {
	presence, err := decode[schema.Presence](payload)
	if err != nil {
		return nil, err
	}
	// Presence updates usually carry only the user's id; a partial
	// user must not overwrite a cached full one.
	if presence.User.Username != "" {
		d.cache.SetUser(presence.User)
	}
	d.cache.SetPresence(presence)
	return notify.PresenceChanged{
		GuildID: presence.GuildID,
		UserID:  presence.User.ID,
		Status:  string(presence.Status),
	}, nil
}

func (d *Dispatcher) onVoiceStateUpdate(payload json.RawMessage) (notify.Notification, error) {
	state, err := decode[schema.VoiceState](payload)
	if err != nil {
		return nil, err
	}
	d.storeVoiceState(state)
	return notify.VoiceStateChanged{
		GuildID:   state.GuildID,
		ChannelID: state.ChannelID,
		UserID:    state.UserID,
	}, nil
}

// storeVoiceState records a join or move, or a leave when the state
// has no channel.
func (d *Dispatcher) storeVoiceState(state schema.VoiceState) {
	if state.ChannelID.IsZero() {
		d.cache.ClearVoiceState(state.GuildID, state.UserID)
	} else {
		d.cache.SetVoiceState(state)
	}
	d.indices.moveVoice(state.GuildID, state.UserID, state.ChannelID)
}
