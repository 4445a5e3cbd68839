// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/bureau-foundation/switchboard/lib/snowflake"
	"github.com/bureau-foundation/switchboard/notify"
)

func TestPlainFormat(t *testing.T) {
	tests := []struct {
		notification notify.Notification
		want         string
	}{
		{notify.Connected{SessionID: "s1", Resumed: true}, "connected session=s1 resumed=true"},
		{
			notify.Disconnected{Reconnecting: true, CloseCode: 4000, Reason: "unknown error"},
			`disconnected reconnecting=true code=4000 reason="unknown error"`,
		},
		{
			notify.EntityUpdated{EntityRef: notify.EntityRef{Entity: notify.EntityMessage, ID: 7, ChannelID: 10}},
			"entity_updated entity=message id=7 channel=10",
		},
		{
			notify.EntityDeleted{EntityRef: notify.EntityRef{Entity: notify.EntityGuild, ID: 1}, Unavailable: true},
			"entity_deleted entity=guild id=1 unavailable=true",
		},
		{
			notify.ThreadCreated{ThreadID: 31, GuildID: 1, ParentID: 10, AlreadyKnown: true},
			"thread_created thread=31 guild=1 parent=10 already_known=true",
		},
		{
			notify.MessagesDeleted{ChannelID: 10, MessageIDs: []snowflake.ID{5, 6}},
			"messages_deleted channel=10 messages=5,6",
		},
		{
			notify.ReactionRemoved{Reaction: notify.Reaction{ChannelID: 10, MessageID: 5, UserID: 100, Emoji: "👍"}},
			"reaction_removed channel=10 message=5 user=100 emoji=👍",
		},
		{
			notify.MembersChunk{GuildID: 1, ChunkIndex: 0, ChunkCount: 2, Members: 50, Nonce: "n"},
			"members_chunk guild=1 chunk=1/2 members=50 nonce=n",
		},
		{
			notify.VoiceStateChanged{GuildID: 1, UserID: 100},
			"voice_state_changed guild=1 user=100 channel=none",
		},
		{
			notify.ReadStateChanged{ChannelID: 10, LastMessageID: 9, MentionCount: 0},
			"read_state_changed channel=10 last_message=9 mentions=0",
		},
	}
	p := newPrinter(nil, false)
	for _, tt := range tests {
		if got := p.format(tt.notification); got != tt.want {
			t.Errorf("format(%#v)\n got %q\nwant %q", tt.notification, got, tt.want)
		}
	}
}

func TestPrinterWritesLines(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, false)
	p.Handle(notify.Connected{SessionID: "s1"})
	p.Handle(notify.TypingStarted{ChannelID: 10, UserID: 200})
	want := "connected session=s1\ntyping_started channel=10 user=200\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestStyledFormatKeepsFields(t *testing.T) {
	line := newPrinter(nil, true).format(notify.PresenceChanged{GuildID: 1, UserID: 200, Status: "idle"})
	for _, want := range []string{"presence_changed", "guild=", "200", "idle"} {
		if !strings.Contains(line, want) {
			t.Errorf("styled line %q lacks %q", line, want)
		}
	}
}

func TestLoggerIsJSONOffTerminal(t *testing.T) {
	var out bytes.Buffer
	logger := newLogger(&out, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("shown", "session_id", "s1")
	if !strings.HasPrefix(out.String(), "{") || !strings.Contains(out.String(), `"session_id":"s1"`) {
		t.Errorf("log output = %q", out.String())
	}
	if strings.Contains(out.String(), "hidden") {
		t.Error("debug record written at info level")
	}
}
