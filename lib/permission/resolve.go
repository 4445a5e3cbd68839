// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// Scope is a guild as seen by the resolver.
type Scope struct {
	// ID is the guild ID, which is also the @everyone role ID.
	ID snowflake.ID

	// OwnerID is the guild owner, who holds every permission and can
	// never be the target of a moderation action.
	OwnerID snowflake.ID

	// Roles holds every role in the guild keyed by role ID.
	Roles map[snowflake.ID]schema.Role
}

// NewScope builds a Scope from a guild's role list.
func NewScope(guildID, ownerID snowflake.ID, roles []schema.Role) Scope {
	indexed := make(map[snowflake.ID]schema.Role, len(roles))
	for _, role := range roles {
		indexed[role.ID] = role
	}
	return Scope{ID: guildID, OwnerID: ownerID, Roles: indexed}
}

// Subject is a user together with the roles they hold in a scope. The
// @everyone role is implicit and need not be listed.
type Subject struct {
	ID    snowflake.ID
	Roles []snowflake.ID
}

// Base returns the guild-level permissions of subject.
func Base(subject Subject, scope Scope) schema.Permissions {
	if !scope.OwnerID.IsZero() && subject.ID == scope.OwnerID {
		return schema.PermissionsAll
	}

	permissions := scope.Roles[scope.ID].Permissions
	for _, roleID := range subject.Roles {
		if role, ok := scope.Roles[roleID]; ok {
			permissions |= role.Permissions
		}
	}

	if permissions.Has(schema.PermissionAdministrator) {
		return schema.PermissionsAll
	}
	return permissions
}

// ApplyOverwrites applies a channel's overwrites to a base permission
// set.
func ApplyOverwrites(base schema.Permissions, subject Subject, scope Scope, overwrites []schema.PermissionOverwrite) schema.Permissions {
	if base.Has(schema.PermissionAdministrator) {
		return schema.PermissionsAll
	}

	held := make(map[snowflake.ID]struct{}, len(subject.Roles))
	for _, roleID := range subject.Roles {
		held[roleID] = struct{}{}
	}

	permissions := base
	var everyone, direct *schema.PermissionOverwrite
	var roleAllow, roleDeny schema.Permissions
	for index := range overwrites {
		overwrite := &overwrites[index]
		switch overwrite.Type {
		case schema.OverwriteRole:
			if overwrite.ID == scope.ID {
				everyone = overwrite
				continue
			}
			if _, ok := held[overwrite.ID]; ok {
				roleAllow |= overwrite.Allow
				roleDeny |= overwrite.Deny
			}
		case schema.OverwriteMember:
			if overwrite.ID == subject.ID {
				direct = overwrite
			}
		}
	}

	if everyone != nil {
		permissions = apply(permissions, everyone.Allow, everyone.Deny)
	}
	permissions = apply(permissions, roleAllow, roleDeny)
	if direct != nil {
		permissions = apply(permissions, direct.Allow, direct.Deny)
	}
	return permissions
}

// Resolve runs both stages for one channel.
func Resolve(subject Subject, scope Scope, overwrites []schema.PermissionOverwrite) schema.Permissions {
	return ApplyOverwrites(Base(subject, scope), subject, scope, overwrites)
}

// Has reports whether resolved contains every flag in wanted.
func Has(resolved, wanted schema.Permissions) bool {
	return resolved&wanted == wanted
}

func apply(permissions, allow, deny schema.Permissions) schema.Permissions {
	return (permissions &^ deny) | allow
}

// HighestPosition returns the position of the most senior role held by
// subject. The second result is false when subject holds no known role
// other than @everyone.
func HighestPosition(subject Subject, scope Scope) (int, bool) {
	highest, found := 0, false
	for _, roleID := range subject.Roles {
		if roleID == scope.ID {
			continue
		}
		role, ok := scope.Roles[roleID]
		if !ok {
			continue
		}
		if !found || role.Position > highest {
			highest, found = role.Position, true
		}
	}
	return highest, found
}

// CanActOn reports whether actor outranks target for moderation. The
// owner is never a valid target. A subject without roles is outranked
// by any subject with one, and outranks nobody.
func CanActOn(scope Scope, actor, target Subject) bool {
	if !scope.OwnerID.IsZero() && target.ID == scope.OwnerID {
		return false
	}
	actorPosition, actorRanked := HighestPosition(actor, scope)
	if !actorRanked {
		return false
	}
	targetPosition, targetRanked := HighestPosition(target, scope)
	if !targetRanked {
		return true
	}
	return actorPosition > targetPosition
}
