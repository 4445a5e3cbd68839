// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/switchboard/lib/snowflake"
	"github.com/bureau-foundation/switchboard/notify"
)

var (
	kindStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Width(20)
	connectedStyle    = kindStyle.Foreground(lipgloss.Color("2")).Bold(true)
	disconnectedStyle = kindStyle.Foreground(lipgloss.Color("1")).Bold(true)
	keyStyle          = lipgloss.NewStyle().Faint(true)
)

// printer writes one line per notification.
type printer struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool
}

func newPrinter(out io.Writer, styled bool) *printer {
	return &printer{out: out, styled: styled}
}

func (p *printer) Handle(notification notify.Notification) {
	line := p.format(notification)
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

func (p *printer) format(notification notify.Notification) string {
	kind := string(notification.Kind())
	fields := describe(notification)

	if !p.styled {
		parts := append([]string{kind}, fields...)
		return strings.Join(parts, " ")
	}

	style := kindStyle
	switch notification.(type) {
	case notify.Connected:
		style = connectedStyle
	case notify.Disconnected:
		style = disconnectedStyle
	}
	var line strings.Builder
	line.WriteString(style.Render(kind))
	for _, field := range fields {
		key, value, _ := strings.Cut(field, "=")
		line.WriteString(" " + keyStyle.Render(key+"=") + value)
	}
	return line.String()
}

type fieldList []string

func (f *fieldList) add(key, value string) { *f = append(*f, key+"="+value) }

func (f *fieldList) id(key string, id snowflake.ID) {
	if !id.IsZero() {
		f.add(key, id.String())
	}
}

func (f *fieldList) flag(key string, set bool) {
	if set {
		f.add(key, "true")
	}
}

func (f *fieldList) entity(ref notify.EntityRef) {
	f.add("entity", string(ref.Entity))
	f.id("id", ref.ID)
	f.id("guild", ref.GuildID)
	f.id("channel", ref.ChannelID)
	if ref.Code != "" {
		f.add("code", ref.Code)
	}
}

func (f *fieldList) reaction(reaction notify.Reaction) {
	f.id("channel", reaction.ChannelID)
	f.id("message", reaction.MessageID)
	f.id("user", reaction.UserID)
	f.add("emoji", reaction.Emoji)
}

func ids(values []snowflake.ID) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = value.String()
	}
	return strings.Join(parts, ",")
}

// describe renders a notification's fields as key=value pairs.
func describe(notification notify.Notification) []string {
	var f fieldList
	switch n := notification.(type) {
	case notify.Connected:
		f.add("session", n.SessionID)
		f.flag("resumed", n.Resumed)
	case notify.Disconnected:
		f.add("reconnecting", strconv.FormatBool(n.Reconnecting))
		if n.CloseCode != 0 {
			f.add("code", strconv.Itoa(n.CloseCode))
		}
		if n.Reason != "" {
			f.add("reason", strconv.Quote(n.Reason))
		}
	case notify.EntityCreated:
		f.entity(n.EntityRef)
	case notify.EntityUpdated:
		f.entity(n.EntityRef)
	case notify.EntityDeleted:
		f.entity(n.EntityRef)
		f.flag("unavailable", n.Unavailable)
	case notify.ThreadCreated:
		f.id("thread", n.ThreadID)
		f.id("guild", n.GuildID)
		f.id("parent", n.ParentID)
		f.flag("newly_created", n.NewlyCreated)
		f.flag("already_known", n.AlreadyKnown)
	case notify.ThreadsSynced:
		f.id("guild", n.GuildID)
		f.add("threads", ids(n.ThreadIDs))
	case notify.MembersChunk:
		f.id("guild", n.GuildID)
		f.add("chunk", fmt.Sprintf("%d/%d", n.ChunkIndex+1, n.ChunkCount))
		f.add("members", strconv.Itoa(n.Members))
		if n.Nonce != "" {
			f.add("nonce", n.Nonce)
		}
	case notify.MessagesDeleted:
		f.id("channel", n.ChannelID)
		f.add("messages", ids(n.MessageIDs))
	case notify.ReactionAdded:
		f.reaction(n.Reaction)
	case notify.ReactionRemoved:
		f.reaction(n.Reaction)
	case notify.ReadStateChanged:
		f.id("channel", n.ChannelID)
		f.id("last_message", n.LastMessageID)
		f.add("mentions", strconv.Itoa(n.MentionCount))
	case notify.PresenceChanged:
		f.id("guild", n.GuildID)
		f.id("user", n.UserID)
		f.add("status", n.Status)
	case notify.TypingStarted:
		f.id("channel", n.ChannelID)
		f.id("user", n.UserID)
	case notify.VoiceStateChanged:
		f.id("guild", n.GuildID)
		f.id("user", n.UserID)
		if n.ChannelID.IsZero() {
			f.add("channel", "none")
		} else {
			f.id("channel", n.ChannelID)
		}
	default:
		f.add("value", fmt.Sprintf("%+v", n))
	}
	return f
}
