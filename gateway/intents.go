// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"github.com/google/uuid"

	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

// IdentifyProperties describes the connecting client.
type IdentifyProperties struct {
	OS             string `json:"os"`
	Browser        string `json:"browser"`
	Device         string `json:"device"`
	BrowserVersion string `json:"browser_version,omitempty"`
	SystemLocale   string `json:"system_locale,omitempty"`
}

// Identify opens a new session (op 2).
type Identify struct {
	Token          string             `json:"token"`
	Properties     IdentifyProperties `json:"properties"`
	Capabilities   int                `json:"capabilities,omitempty"`
	Intents        *int               `json:"intents,omitempty"`
	Presence       *PresenceUpdate    `json:"presence,omitempty"`
	LargeThreshold int                `json:"large_threshold,omitempty"`

	// Compress requests per-message payload compression. The client
	// uses transport compression instead and always sends false.
	Compress bool `json:"compress"`
}

// Resume continues an existing session (op 6).
type Resume struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// PresenceUpdate sets the current user's status (op 3).
type PresenceUpdate struct {
	// Since is the Unix time in milliseconds the user went idle, or
	// nil when not idle.
	Since      *int64            `json:"since"`
	Activities []schema.Activity `json:"activities"`
	Status     schema.Status     `json:"status"`
	AFK        bool              `json:"afk"`
}

// VoiceStateUpdate joins, moves within or leaves voice (op 4). A zero
// ChannelID leaves; a zero GuildID addresses a private call.
type VoiceStateUpdate struct {
	GuildID   snowflake.ID `json:"guild_id"`
	ChannelID snowflake.ID `json:"channel_id"`
	SelfMute  bool         `json:"self_mute"`
	SelfDeaf  bool         `json:"self_deaf"`
	SelfVideo bool         `json:"self_video,omitempty"`
}

// RequestGuildMembers asks for GUILD_MEMBERS_CHUNK events (op 8).
// Either Query or UserIDs selects the members.
type RequestGuildMembers struct {
	GuildID   snowflake.ID   `json:"guild_id"`
	Query     *string        `json:"query,omitempty"`
	Limit     int            `json:"limit"`
	Presences bool           `json:"presences,omitempty"`
	UserIDs   []snowflake.ID `json:"user_ids,omitempty"`
	Nonce     string         `json:"nonce,omitempty"`
}

// LazyRequest subscribes to a guild's typing, threads, activities and
// member list ranges (op 14). Channels maps a channel to the member
// list index ranges the client is displaying.
type LazyRequest struct {
	GuildID    snowflake.ID                    `json:"guild_id"`
	Typing     bool                            `json:"typing,omitempty"`
	Threads    bool                            `json:"threads,omitempty"`
	Activities bool                            `json:"activities,omitempty"`
	Members    []snowflake.ID                  `json:"members,omitempty"`
	Channels   map[snowflake.ID][][2]int       `json:"channels,omitempty"`
	ThreadIDs  map[snowflake.ID][]snowflake.ID `json:"thread_member_lists,omitempty"`
}

// newNonce returns a fresh correlation value for member requests.
func newNonce() string { return uuid.NewString() }

func identifyCommand(identify Identify) ([]byte, error) {
	identify.Compress = false
	return command(OpIdentify, identify)
}

func resumeCommand(resume Resume) ([]byte, error) { return command(OpResume, resume) }

// heartbeatCommand carries the last sequence, or null before the first
// dispatch.
func heartbeatCommand(lastSequence int64) ([]byte, error) {
	if lastSequence < 0 {
		return command(OpHeartbeat, nil)
	}
	return command(OpHeartbeat, lastSequence)
}
