// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// Source supplies the entities the resolver reads. The entity cache
// implements it.
type Source interface {
	Guild(guildID snowflake.ID) (schema.Guild, bool)
	Roles(guildID snowflake.ID) []schema.Role
	Member(guildID, userID snowflake.ID) (schema.Member, bool)
	Channel(channelID snowflake.ID) (schema.Channel, bool)
}

// Resolver answers permission questions against a Source. It holds no
// state of its own; every call reads the current snapshot.
type Resolver struct {
	source Source
}

// NewResolver returns a Resolver reading from source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// GuildPermissions returns the guild-level permissions of userID.
func (r *Resolver) GuildPermissions(guildID, userID snowflake.ID) schema.Permissions {
	scope, subject, ok := r.lookup(guildID, userID)
	if !ok {
		return schema.PermissionsNone
	}
	return Base(subject, scope)
}

// ChannelPermissions returns the permissions of userID in a channel.
// Threads use their parent channel's overwrites. Private channels and
// unknown channels resolve to PermissionsNone.
func (r *Resolver) ChannelPermissions(channelID, userID snowflake.ID) schema.Permissions {
	channel, ok := r.source.Channel(channelID)
	if !ok {
		return schema.PermissionsNone
	}
	if channel.Type.IsThread() {
		parent, ok := r.source.Channel(channel.ParentID)
		if !ok {
			return schema.PermissionsNone
		}
		channel = parent
	}
	if channel.GuildID.IsZero() {
		return schema.PermissionsNone
	}

	scope, subject, ok := r.lookup(channel.GuildID, userID)
	if !ok {
		return schema.PermissionsNone
	}
	return Resolve(subject, scope, channel.PermissionOverwrites)
}

// HasGuildPermission reports whether userID holds every flag in wanted
// at guild level.
func (r *Resolver) HasGuildPermission(guildID, userID snowflake.ID, wanted schema.Permissions) bool {
	return Has(r.GuildPermissions(guildID, userID), wanted)
}

// HasChannelPermission reports whether userID holds every flag in
// wanted in a channel.
func (r *Resolver) HasChannelPermission(channelID, userID snowflake.ID, wanted schema.Permissions) bool {
	return Has(r.ChannelPermissions(channelID, userID), wanted)
}

// CanManageMember reports whether actorID outranks targetID in a
// guild. Unknown guilds and members never outrank anyone.
func (r *Resolver) CanManageMember(guildID, actorID, targetID snowflake.ID) bool {
	scope, actor, ok := r.lookup(guildID, actorID)
	if !ok {
		return false
	}
	target := Subject{ID: targetID}
	if member, found := r.source.Member(guildID, targetID); found {
		target.Roles = member.Roles
	}
	return CanActOn(scope, actor, target)
}

// lookup assembles the scope and subject for a user in a guild. The
// owner resolves even without a cached member record.
func (r *Resolver) lookup(guildID, userID snowflake.ID) (Scope, Subject, bool) {
	guild, ok := r.source.Guild(guildID)
	if !ok {
		return Scope{}, Subject{}, false
	}
	scope := NewScope(guild.ID, guild.OwnerID, r.source.Roles(guildID))
	subject := Subject{ID: userID}

	member, found := r.source.Member(guildID, userID)
	if !found && userID != guild.OwnerID {
		return Scope{}, Subject{}, false
	}
	subject.Roles = member.Roles
	return scope, subject, true
}
