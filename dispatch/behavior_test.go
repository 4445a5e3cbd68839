// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"reflect"
	"testing"

	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
	"github.com/bureau-foundation/switchboard/notify"
)

// snapshot is the part of the cache the replay events touch.
type snapshot struct {
	Members       []schema.Member
	Channels      []schema.Channel
	Messages      []schema.Message
	ReadState     schema.ReadState
	VoiceState    schema.VoiceState
	Settings      schema.GuildSettings
	Relationships []schema.Relationship
}

func takeSnapshot(f *fixture) snapshot {
	readState, _ := f.cache.ReadState(textChannel)
	voiceState, _ := f.cache.VoiceState(guildID, currentUser)
	settings, _ := f.cache.GuildSettings(guildID)
	var relationships []schema.Relationship
	for _, userID := range []snowflake.ID{otherUser, 205} {
		if relationship, ok := f.cache.Relationship(userID); ok {
			relationships = append(relationships, relationship)
		}
	}
	return snapshot{
		Members:       f.cache.Members(guildID),
		Channels:      f.cache.Channels(guildID),
		Messages:      f.cache.Messages(textChannel),
		ReadState:     readState,
		VoiceState:    voiceState,
		Settings:      settings,
		Relationships: relationships,
	}
}

func TestReplayedEventsAreIdempotent(t *testing.T) {
	events := []struct {
		event   string
		payload string
	}{
		{"GUILD_MEMBER_ADD", `{"guild_id": "1", "user": {"id": "201", "username": "new"}, "roles": []}`},
		{"MESSAGE_CREATE", `{"id": "1000", "channel_id": "10", "guild_id": "1", "author": {"id": "200"}, "content": "hey <@100>", "mentions": [{"id": "100"}], "timestamp": "2026-01-01T00:00:00Z"}`},
		{"MESSAGE_CREATE", `{"id": "1001", "channel_id": "10", "guild_id": "1", "author": {"id": "201"}, "content": "roles", "mention_roles": ["300"], "timestamp": "2026-01-01T00:00:01Z"}`},
		{"MESSAGE_UPDATE", `{"id": "1000", "channel_id": "10", "content": "hey again <@100>", "edited_timestamp": "2026-01-01T00:01:00Z"}`},
		{"MESSAGE_REACTION_ADD", `{"user_id": "200", "channel_id": "10", "message_id": "1000", "emoji": {"name": "👍"}}`},
		{"MESSAGE_REACTION_ADD", `{"user_id": "100", "channel_id": "10", "message_id": "1000", "emoji": {"name": "👍"}}`},
		{"MESSAGE_REACTION_REMOVE", `{"user_id": "200", "channel_id": "10", "message_id": "1000", "emoji": {"name": "👍"}}`},
		{"MESSAGE_ACK", `{"channel_id": "10", "message_id": "1000"}`},
		{"VOICE_STATE_UPDATE", `{"guild_id": "1", "channel_id": "20", "user_id": "100"}`},
		{"VOICE_STATE_UPDATE", `{"guild_id": "1", "channel_id": "21", "user_id": "100"}`},
		{"THREAD_CREATE", `{"id": "31", "type": 11, "guild_id": "1", "parent_id": "10", "newly_created": true}`},
		{"THREAD_MEMBERS_UPDATE", `{"id": "31", "guild_id": "1", "member_count": 1, "added_members": [{"id": "31", "user_id": "100"}]}`},
		{"THREAD_LIST_SYNC", `{"guild_id": "1", "threads": [{"id": "32", "type": 11, "parent_id": "10"}], "members": [{"id": "32", "user_id": "100"}]}`},
		{"USER_GUILD_SETTINGS_UPDATE", `{"guild_id": "1", "muted": false, "channel_overrides": [{"channel_id": "10", "muted": true}]}`},
		{"RELATIONSHIP_ADD", `{"id": "205", "type": 3, "user": {"id": "205"}}`},
		{"GUILD_MEMBER_REMOVE", `{"guild_id": "1", "user": {"id": "200"}}`},
		{"MESSAGE_DELETE", `{"id": "1001", "channel_id": "10", "guild_id": "1"}`},
	}

	once := newReadyFixture(t)
	twice := newReadyFixture(t)
	for _, event := range events {
		once.dispatchOne(event.event, event.payload)
		twice.dispatchOne(event.event, event.payload)
		twice.dispatchOne(event.event, event.payload)

		if !reflect.DeepEqual(once.dispatcher.indices, twice.dispatcher.indices) {
			t.Fatalf("after replaying %s, indices differ:\nonce:  %+v\ntwice: %+v",
				event.event, once.dispatcher.indices, twice.dispatcher.indices)
		}
		if !reflect.DeepEqual(takeSnapshot(once), takeSnapshot(twice)) {
			t.Fatalf("after replaying %s, cache differs:\nonce:  %+v\ntwice: %+v",
				event.event, takeSnapshot(once), takeSnapshot(twice))
		}
	}

	d := once.dispatcher
	if got := d.UnreadMentions(textChannel); got != 0 {
		t.Errorf("UnreadMentions = %d, want 0 (1000 acknowledged, 1001 deleted)", got)
	}
	if got := d.MemberCount(guildID); got != 2 {
		t.Errorf("MemberCount = %d, want 2", got)
	}
	if got := d.JoinedThreads(); !reflect.DeepEqual(got, []snowflake.ID{30, 31, 32}) {
		t.Errorf("JoinedThreads = %v", got)
	}
	if got := d.ReactionUsers(textChannel, 1000, "👍"); !reflect.DeepEqual(got, []snowflake.ID{currentUser}) {
		t.Errorf("ReactionUsers = %v", got)
	}
}

func TestMentionsCountUntilAcknowledged(t *testing.T) {
	f := newReadyFixture(t)
	f.dispatch("MESSAGE_ACK", `{"channel_id": "10", "message_id": "900"}`)

	f.dispatch("MESSAGE_CREATE", `{"id": "1000", "channel_id": "10", "guild_id": "1", "author": {"id": "200"}, "mentions": [{"id": "100"}], "timestamp": "2026-01-01T00:00:00Z"}`)
	f.dispatch("MESSAGE_CREATE", `{"id": "1001", "channel_id": "10", "guild_id": "1", "author": {"id": "200"}, "mention_roles": ["300"], "timestamp": "2026-01-01T00:00:00Z"}`)
	f.dispatch("MESSAGE_CREATE", `{"id": "1002", "channel_id": "10", "guild_id": "1", "author": {"id": "200"}, "mention_everyone": true, "timestamp": "2026-01-01T00:00:00Z"}`)
	// Own messages and messages that mention someone else do not count.
	f.dispatch("MESSAGE_CREATE", `{"id": "1003", "channel_id": "10", "guild_id": "1", "author": {"id": "100"}, "mentions": [{"id": "100"}], "timestamp": "2026-01-01T00:00:00Z"}`)
	f.dispatch("MESSAGE_CREATE", `{"id": "1004", "channel_id": "10", "guild_id": "1", "author": {"id": "200"}, "mentions": [{"id": "201"}], "timestamp": "2026-01-01T00:00:00Z"}`)

	if got := f.dispatcher.UnreadMentions(textChannel); got != 3 {
		t.Fatalf("UnreadMentions = %d, want 3", got)
	}
	if channel, _ := f.cache.Channel(textChannel); channel.LastMessageID != 1004 {
		t.Errorf("LastMessageID = %v, want 1004", channel.LastMessageID)
	}

	notification := f.dispatchOne("MESSAGE_ACK", `{"channel_id": "10", "message_id": "1001"}`)
	want := notify.ReadStateChanged{ChannelID: textChannel, LastMessageID: 1001, MentionCount: 1}
	if notification != want {
		t.Errorf("ack notification = %#v, want %#v", notification, want)
	}
	if state, _ := f.cache.ReadState(textChannel); state.MentionCount != 1 || state.LastMessageID != 1001 {
		t.Errorf("ReadState = %+v", state)
	}

	f.dispatch("MESSAGE_ACK", `{"channel_id": "10", "message_id": "1004"}`)
	if got := f.dispatcher.UnreadMentions(textChannel); got != 0 {
		t.Errorf("UnreadMentions after full ack = %d", got)
	}
}

func TestReactionCounts(t *testing.T) {
	f := newReadyFixture(t)
	f.dispatch("MESSAGE_CREATE", `{"id": "1000", "channel_id": "10", "guild_id": "1", "author": {"id": "200"}, "timestamp": "2026-01-01T00:00:00Z"}`)

	reaction := func() (schema.Reaction, bool) {
		t.Helper()
		message, ok := f.cache.Message(textChannel, 1000)
		if !ok {
			t.Fatal("message not cached")
		}
		if len(message.Reactions) == 0 {
			return schema.Reaction{}, false
		}
		return message.Reactions[0], true
	}
	const other = `{"user_id": "200", "channel_id": "10", "message_id": "1000", "emoji": {"id": "40", "name": "wave"}}`
	const mine = `{"user_id": "100", "channel_id": "10", "message_id": "1000", "emoji": {"id": "40", "name": "wave"}}`

	f.dispatch("MESSAGE_REACTION_ADD", other)
	f.dispatch("MESSAGE_REACTION_ADD", other)
	if got, _ := reaction(); got.Count != 1 || got.Me {
		t.Fatalf("after duplicate add: %+v", got)
	}
	f.dispatch("MESSAGE_REACTION_ADD", mine)
	if got, _ := reaction(); got.Count != 2 || !got.Me {
		t.Fatalf("after own add: %+v", got)
	}
	if got := f.dispatcher.ReactionUsers(textChannel, 1000, "40"); !reflect.DeepEqual(got, []snowflake.ID{currentUser, otherUser}) {
		t.Errorf("ReactionUsers = %v", got)
	}

	notification := f.dispatchOne("MESSAGE_REACTION_REMOVE", mine)
	removed, ok := notification.(notify.ReactionRemoved)
	if !ok || removed.UserID != currentUser || removed.Emoji != "40" {
		t.Errorf("remove notification = %#v", notification)
	}
	f.dispatch("MESSAGE_REACTION_REMOVE", mine)
	if got, _ := reaction(); got.Count != 1 || got.Me {
		t.Fatalf("after own remove: %+v", got)
	}
	f.dispatch("MESSAGE_REACTION_REMOVE", other)
	if got, present := reaction(); present {
		t.Fatalf("reaction survived its last remove: %+v", got)
	}
}

func TestThreadCreateReportsWhatItKnows(t *testing.T) {
	f := newReadyFixture(t)

	created := f.dispatchOne("THREAD_CREATE", `{"id": "31", "type": 11, "guild_id": "1", "parent_id": "10", "newly_created": true, "member": {"id": "31", "user_id": "100"}}`)
	want := notify.ThreadCreated{ThreadID: 31, GuildID: guildID, ParentID: textChannel, NewlyCreated: true}
	if created != want {
		t.Errorf("new thread = %#v, want %#v", created, want)
	}

	// Access to an existing private thread arrives as THREAD_CREATE too.
	existing := f.dispatchOne("THREAD_CREATE", `{"id": "30", "type": 12, "guild_id": "1", "parent_id": "10"}`)
	want = notify.ThreadCreated{ThreadID: 30, GuildID: guildID, ParentID: textChannel, AlreadyKnown: true}
	if existing != want {
		t.Errorf("existing thread = %#v, want %#v", existing, want)
	}

	if got := f.dispatcher.JoinedThreads(); !reflect.DeepEqual(got, []snowflake.ID{30, 31}) {
		t.Errorf("JoinedThreads = %v", got)
	}
}

func TestThreadMembership(t *testing.T) {
	f := newReadyFixture(t)
	f.dispatch("THREAD_MEMBERS_UPDATE", `{"id": "30", "guild_id": "1", "member_count": 4, "removed_member_ids": ["100"]}`)
	if got := f.dispatcher.JoinedThreads(); got != nil {
		t.Errorf("JoinedThreads after leaving = %v", got)
	}
	thread, _ := f.cache.Channel(30)
	if thread.MemberCount != 4 || thread.Member != nil {
		t.Errorf("thread = %+v", thread)
	}

	f.dispatch("THREAD_DELETE", `{"id": "30", "type": 11, "guild_id": "1", "parent_id": "10"}`)
	if _, ok := f.cache.Channel(30); ok {
		t.Error("deleted thread still cached")
	}
}

func TestGuildDelete(t *testing.T) {
	t.Run("outage keeps the guild", func(t *testing.T) {
		f := newReadyFixture(t)
		notification := f.dispatchOne("GUILD_DELETE", `{"id": "1", "unavailable": true}`)
		if deleted, ok := notification.(notify.EntityDeleted); !ok || !deleted.Unavailable {
			t.Fatalf("notification = %#v", notification)
		}
		guild, ok := f.cache.Guild(guildID)
		if !ok || !guild.Unavailable || guild.Name != "Guild" {
			t.Errorf("guild = %+v, %v", guild, ok)
		}
		if f.dispatcher.MemberCount(guildID) != 2 {
			t.Error("outage dropped the member index")
		}

		again := f.dispatchOne("GUILD_CREATE", `{"id": "1", "name": "Guild"}`)
		if again.Kind() != notify.KindEntityCreated {
			t.Errorf("guild returning from an outage reported %s", again.Kind())
		}
	})

	t.Run("leaving removes everything", func(t *testing.T) {
		f := newReadyFixture(t)
		f.dispatch("MESSAGE_CREATE", `{"id": "1000", "channel_id": "10", "guild_id": "1", "author": {"id": "200"}, "timestamp": "2026-01-01T00:00:00Z"}`)
		f.dispatchOne("GUILD_DELETE", `{"id": "1"}`)
		if _, ok := f.cache.Guild(guildID); ok {
			t.Error("guild still cached")
		}
		if _, ok := f.cache.Channel(textChannel); ok {
			t.Error("channel still cached")
		}
		d := f.dispatcher
		if d.MemberCount(guildID) != 0 || d.ChannelMessages(textChannel) != nil || d.VoiceChannelUsers(voiceA) != nil {
			t.Error("indices survived leaving the guild")
		}
		if d.GuildMuted(guildID) || d.ChannelMuted(voiceA) {
			t.Error("mutes survived leaving the guild")
		}
		if got := d.JoinedThreads(); got != nil {
			t.Errorf("JoinedThreads = %v", got)
		}
	})
}

func TestVoiceStateMoves(t *testing.T) {
	f := newReadyFixture(t)
	d := f.dispatcher

	f.dispatch("VOICE_STATE_UPDATE", `{"guild_id": "1", "channel_id": "20", "user_id": "100"}`)
	if got := d.VoiceChannelUsers(voiceA); !reflect.DeepEqual(got, []snowflake.ID{currentUser, otherUser}) {
		t.Errorf("voice A = %v", got)
	}
	f.dispatch("VOICE_STATE_UPDATE", `{"guild_id": "1", "channel_id": "21", "user_id": "100"}`)
	if got := d.VoiceChannelUsers(voiceB); !reflect.DeepEqual(got, []snowflake.ID{currentUser}) {
		t.Errorf("voice B = %v", got)
	}
	if got := d.VoiceChannelUsers(voiceA); !reflect.DeepEqual(got, []snowflake.ID{otherUser}) {
		t.Errorf("voice A after move = %v", got)
	}

	left := f.dispatchOne("VOICE_STATE_UPDATE", `{"guild_id": "1", "channel_id": null, "user_id": "100"}`)
	if changed := left.(notify.VoiceStateChanged); !changed.ChannelID.IsZero() {
		t.Errorf("leave notification = %#v", changed)
	}
	if got := d.VoiceChannelUsers(voiceB); got != nil {
		t.Errorf("voice B after leave = %v", got)
	}
	if _, ok := f.cache.VoiceState(guildID, currentUser); ok {
		t.Error("voice state survived leaving")
	}
}

func TestPartialUpdatesKeepCachedFields(t *testing.T) {
	f := newReadyFixture(t)
	f.dispatch("MESSAGE_CREATE", `{"id": "1000", "channel_id": "10", "guild_id": "1", "author": {"id": "200", "username": "owner"}, "content": "first", "pinned": false, "timestamp": "2026-01-01T00:00:00Z"}`)
	f.dispatch("MESSAGE_UPDATE", `{"id": "1000", "channel_id": "10", "pinned": true}`)

	message, _ := f.cache.Message(textChannel, 1000)
	if message.Content != "first" || !message.Pinned || message.Author.Username != "owner" {
		t.Errorf("merged message = %+v", message)
	}

	f.dispatch("PRESENCE_UPDATE", `{"user": {"id": "200"}, "guild_id": "1", "status": "dnd"}`)
	if user, _ := f.cache.User(otherUser); user.Username != "owner" {
		t.Errorf("partial presence user replaced the cached user: %+v", user)
	}
	if presence, _ := f.cache.Presence(guildID, otherUser); presence.Status != schema.StatusDoNotDisturb {
		t.Errorf("presence = %+v", presence)
	}

	f.dispatch("CHANNEL_UPDATE", `{"id": "10", "type": 0, "guild_id": "1", "name": "renamed"}`)
	if channel, _ := f.cache.Channel(textChannel); channel.Name != "renamed" || channel.LastMessageID != 1000 {
		t.Errorf("channel = %+v", channel)
	}
}

func TestGuildSettingsReplaceMutes(t *testing.T) {
	f := newReadyFixture(t)
	f.dispatch("USER_GUILD_SETTINGS_UPDATE", `{"guild_id": "1", "muted": false, "channel_overrides": [{"channel_id": "10", "muted": true}]}`)
	d := f.dispatcher
	if d.GuildMuted(guildID) || d.ChannelMuted(voiceA) || !d.ChannelMuted(textChannel) {
		t.Errorf("mutes = guild %v, voice %v, text %v", d.GuildMuted(guildID), d.ChannelMuted(voiceA), d.ChannelMuted(textChannel))
	}
}

func TestRecipients(t *testing.T) {
	f := newReadyFixture(t)
	f.dispatch("CHANNEL_RECIPIENT_ADD", `{"channel_id": "50", "user": {"id": "204", "username": "guest"}}`)
	f.dispatch("CHANNEL_RECIPIENT_ADD", `{"channel_id": "50", "user": {"id": "204", "username": "guest"}}`)
	if channel, _ := f.cache.Channel(50); len(channel.Recipients) != 2 {
		t.Fatalf("recipients after add = %+v", channel.Recipients)
	}
	f.dispatch("CHANNEL_RECIPIENT_REMOVE", `{"channel_id": "50", "user": {"id": "200"}}`)
	channel, _ := f.cache.Channel(50)
	if len(channel.Recipients) != 1 || channel.Recipients[0].ID != 204 {
		t.Errorf("recipients after remove = %+v", channel.Recipients)
	}
}
