// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"fmt"
	"strconv"
)

// Permissions is a capability bitmask. The wire form is a decimal
// string because the mask exceeds the integer range of JavaScript
// numbers.
type Permissions uint64

// Permission flags.
const (
	PermissionCreateInstantInvite Permissions = 1 << iota
	PermissionKickMembers
	PermissionBanMembers
	PermissionAdministrator
	PermissionManageChannels
	PermissionManageGuild
	PermissionAddReactions
	PermissionViewAuditLog
	PermissionPrioritySpeaker
	PermissionStream
	PermissionViewChannel
	PermissionSendMessages
	PermissionSendTTSMessages
	PermissionManageMessages
	PermissionEmbedLinks
	PermissionAttachFiles
	PermissionReadMessageHistory
	PermissionMentionEveryone
	PermissionUseExternalEmojis
	PermissionViewGuildInsights
	PermissionConnect
	PermissionSpeak
	PermissionMuteMembers
	PermissionDeafenMembers
	PermissionMoveMembers
	PermissionUseVoiceActivity
	PermissionChangeNickname
	PermissionManageNicknames
	PermissionManageRoles
	PermissionManageWebhooks
	PermissionManageExpressions
	PermissionUseApplicationCommands
	PermissionRequestToSpeak
	PermissionManageEvents
	PermissionManageThreads
	PermissionCreatePublicThreads
	PermissionCreatePrivateThreads
	PermissionUseExternalStickers
	PermissionSendMessagesInThreads
	PermissionUseEmbeddedActivities
	PermissionModerateMembers

	// permissionEnd is one past the highest defined flag.
	permissionEnd
)

// PermissionsAll has every defined flag set.
const PermissionsAll = permissionEnd - 1

// PermissionsNone has no flag set.
const PermissionsNone Permissions = 0

// Has reports whether every flag in wanted is set.
func (p Permissions) Has(wanted Permissions) bool { return p&wanted == wanted }

// String returns the decimal wire form.
func (p Permissions) String() string { return strconv.FormatUint(uint64(p), 10) }

// MarshalJSON encodes the mask as a decimal string.
func (p Permissions) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string or a bare number.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	if raw == "" {
		*p = 0
		return nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid permission mask %q: %w", raw, err)
	}
	*p = Permissions(value)
	return nil
}
