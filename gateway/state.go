// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import "time"

// Status is the session lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusAwaitingHello
	StatusIdentifying
	StatusResuming
	StatusConnected
	StatusReconnecting
	StatusInvalidated
)

var statusNames = [...]string{
	StatusIdle:          "idle",
	StatusConnecting:    "connecting",
	StatusAwaitingHello: "awaiting_hello",
	StatusIdentifying:   "identifying",
	StatusResuming:      "resuming",
	StatusConnected:     "connected",
	StatusReconnecting:  "reconnecting",
	StatusInvalidated:   "invalidated",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// noSequence is LastSequence before any dispatch has been seen.
const noSequence int64 = -1

// SessionState is the client's view of its session. It is created
// empty, filled in by READY, and cleared by Stop or by a session that
// cannot be resumed.
type SessionState struct {
	Status            Status
	SessionID         string
	LastSequence      int64
	HeartbeatInterval time.Duration
	ResumeGatewayURL  string
}

// Resumable reports whether a resume can be attempted.
func (s SessionState) Resumable() bool {
	return s.SessionID != "" && s.LastSequence >= 0
}

func emptySession() SessionState {
	return SessionState{Status: StatusIdle, LastSequence: noSequence}
}

// clearSession discards everything that would allow a resume.
func (s *SessionState) clearSession() {
	s.SessionID = ""
	s.LastSequence = noSequence
	s.ResumeGatewayURL = ""
}

// hello is the op 10 payload.
type hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// ready holds the READY fields the client itself needs.
type ready struct {
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}
