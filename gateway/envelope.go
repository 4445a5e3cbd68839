// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Opcode identifies the kind of envelope.
type Opcode int

const (
	OpDispatch            Opcode = 0
	OpHeartbeat           Opcode = 1
	OpIdentify            Opcode = 2
	OpPresenceUpdate      Opcode = 3
	OpVoiceStateUpdate    Opcode = 4
	OpResume              Opcode = 6
	OpReconnect           Opcode = 7
	OpRequestGuildMembers Opcode = 8
	OpInvalidSession      Opcode = 9
	OpHello               Opcode = 10
	OpHeartbeatAck        Opcode = 11
	OpLazyRequest         Opcode = 14
)

var opcodeNames = map[Opcode]string{
	OpDispatch:            "dispatch",
	OpHeartbeat:           "heartbeat",
	OpIdentify:            "identify",
	OpPresenceUpdate:      "presence_update",
	OpVoiceStateUpdate:    "voice_state_update",
	OpResume:              "resume",
	OpReconnect:           "reconnect",
	OpRequestGuildMembers: "request_guild_members",
	OpInvalidSession:      "invalid_session",
	OpHello:               "hello",
	OpHeartbeatAck:        "heartbeat_ack",
	OpLazyRequest:         "lazy_request",
}

// String returns the opcode's name, or its number when unknown.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Known reports whether o is part of the protocol.
func (o Opcode) Known() bool {
	_, ok := opcodeNames[o]
	return ok
}

// Envelope is one gateway message. Sequence and EventName are set only
// for dispatch envelopes; Sequence is nil when the server sent null.
type Envelope struct {
	Op        Opcode
	Sequence  *int64
	EventName string
	Payload   json.RawMessage
}

// wireEnvelope is the JSON form. Pointer fields distinguish absent
// from zero.
type wireEnvelope struct {
	Op        *Opcode         `json:"op"`
	Payload   json.RawMessage `json:"d,omitempty"`
	Sequence  *int64          `json:"s,omitempty"`
	EventName *string         `json:"t,omitempty"`
}

// ProtocolError reports an envelope that could not be decoded or does
// not fit the protocol. It is never fatal: the client logs it and drops
// the message.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "gateway: protocol error: " + e.Reason + ": " + e.Err.Error()
	}
	return "gateway: protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DecodeEnvelope parses one JSON payload. The opcode is required and
// must be known. A dispatch envelope must name its event.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, &ProtocolError{Reason: "malformed envelope", Err: err}
	}
	if wire.Op == nil {
		return Envelope{}, &ProtocolError{Reason: "envelope has no opcode"}
	}
	if !wire.Op.Known() {
		return Envelope{}, &ProtocolError{Reason: fmt.Sprintf("unknown opcode %d", int(*wire.Op))}
	}

	envelope := Envelope{Op: *wire.Op, Payload: wire.Payload}
	if envelope.Op != OpDispatch {
		return envelope, nil
	}
	if wire.EventName == nil || *wire.EventName == "" {
		return Envelope{}, &ProtocolError{Reason: "dispatch without event name"}
	}
	envelope.EventName = *wire.EventName
	envelope.Sequence = wire.Sequence
	return envelope, nil
}

// Encode returns the JSON form of the envelope.
func (e Envelope) Encode() ([]byte, error) {
	op := e.Op
	wire := wireEnvelope{Op: &op, Payload: e.Payload, Sequence: e.Sequence}
	if e.EventName != "" {
		name := e.EventName
		wire.EventName = &name
	}
	if wire.Payload == nil {
		wire.Payload = json.RawMessage("null")
	}
	return json.Marshal(wire)
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return &ProtocolError{Reason: fmt.Sprintf("%s envelope has no payload", e.describe())}
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return &ProtocolError{Reason: fmt.Sprintf("decoding %s payload", e.describe()), Err: err}
	}
	return nil
}

func (e Envelope) describe() string {
	if e.Op == OpDispatch {
		return e.EventName
	}
	return e.Op.String()
}

// command builds an outbound envelope from an opcode and a payload
// value.
func command(op Opcode, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: encoding %s payload: %w", op, err)
	}
	return Envelope{Op: op, Payload: data}.Encode()
}
