// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snowflake provides the [ID] type used for every gateway entity
// (guilds, channels, roles, users, messages).
//
// A snowflake is a 64-bit unsigned integer whose upper 42 bits encode
// milliseconds since the platform epoch (2015-01-01T00:00:00Z). The wire
// form is a decimal JSON string, because JavaScript clients cannot
// represent the full 64-bit range as numbers. [ID] marshals to and from
// that string form, and also accepts bare JSON numbers when decoding for
// tolerance of older payloads.
//
// The zero ID is never issued by the server and is used throughout the
// module to mean "absent".
//
// This package has no dependencies on other module packages.
package snowflake
