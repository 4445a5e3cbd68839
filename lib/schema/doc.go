// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the entity types carried in gateway payloads:
// guilds, channels (including threads), roles, members, users,
// messages, reactions, presences, voice states, read states, guild
// notification settings, relationships, emojis, bans and invites.
//
// All identifiers are [snowflake.ID]. Structs mirror the wire JSON and
// are decoded directly from dispatch payloads; fields the gateway core
// does not use are omitted rather than carried as opaque data.
//
// [Permissions] is the capability bitmask used by roles and
// permission overwrites. Its flag constants live here because they are
// part of the wire format; the resolution rules live in
// lib/permission.
//
// This package depends only on lib/snowflake.
package schema
