// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission computes effective capabilities for a user in a
// guild or channel.
//
// Resolution runs in two stages:
//
//  1. [Base] derives guild-level permissions. The guild owner holds
//     every permission. Everyone else starts from the @everyone role
//     (whose ID is the guild ID) and gains the union of every role
//     they hold. A union containing Administrator becomes
//     [schema.PermissionsAll].
//
//  2. [ApplyOverwrites] narrows or widens the base for one channel.
//     Administrator is never narrowed. The @everyone overwrite is
//     applied first, then the union of all matching role overwrites
//     (deny, then allow), then the member's own overwrite. Each stage
//     wins over the previous one for the bits it touches.
//
// [CanActOn] gates moderation actions by role position.
//
// The functions are total: unknown roles are ignored and unresolvable
// input yields [schema.PermissionsNone]. [Resolver] binds them to a
// [Source], usually the entity cache, and resolves threads through
// their parent channel.
package permission
