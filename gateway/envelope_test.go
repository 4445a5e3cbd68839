// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOp    Opcode
		wantEvent string
		wantSeq   int64 // -1 for nil
		wantError bool
	}{
		{name: "hello", input: `{"op":10,"d":{"heartbeat_interval":41250}}`, wantOp: OpHello, wantSeq: -1},
		{name: "dispatch", input: `{"op":0,"s":42,"t":"MESSAGE_CREATE","d":{}}`, wantOp: OpDispatch, wantEvent: "MESSAGE_CREATE", wantSeq: 42},
		{name: "dispatch with null sequence", input: `{"op":0,"s":null,"t":"READY","d":{}}`, wantOp: OpDispatch, wantEvent: "READY", wantSeq: -1},
		{name: "ack without payload", input: `{"op":11}`, wantOp: OpHeartbeatAck, wantSeq: -1},
		{name: "non-dispatch ignores sequence", input: `{"op":7,"s":5,"t":null,"d":null}`, wantOp: OpReconnect, wantSeq: -1},
		{name: "malformed", input: `{"op":`, wantError: true},
		{name: "missing opcode", input: `{"d":{}}`, wantError: true},
		{name: "unknown opcode", input: `{"op":5,"d":{}}`, wantError: true},
		{name: "dispatch without event", input: `{"op":0,"s":1,"d":{}}`, wantError: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			envelope, err := DecodeEnvelope([]byte(test.input))
			if test.wantError {
				var protocolError *ProtocolError
				if !errors.As(err, &protocolError) {
					t.Fatalf("DecodeEnvelope error = %v, want *ProtocolError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEnvelope: %v", err)
			}
			if envelope.Op != test.wantOp {
				t.Errorf("Op = %v, want %v", envelope.Op, test.wantOp)
			}
			if envelope.EventName != test.wantEvent {
				t.Errorf("EventName = %q, want %q", envelope.EventName, test.wantEvent)
			}
			switch {
			case test.wantSeq < 0 && envelope.Sequence != nil:
				t.Errorf("Sequence = %d, want nil", *envelope.Sequence)
			case test.wantSeq >= 0 && (envelope.Sequence == nil || *envelope.Sequence != test.wantSeq):
				t.Errorf("Sequence = %v, want %d", envelope.Sequence, test.wantSeq)
			}
		})
	}
}

func TestEnvelopeDecodePayload(t *testing.T) {
	envelope, err := DecodeEnvelope([]byte(`{"op":10,"d":{"heartbeat_interval":41250}}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	var payload hello
	if err := envelope.Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload.HeartbeatInterval != 41250 {
		t.Errorf("HeartbeatInterval = %d, want 41250", payload.HeartbeatInterval)
	}

	empty := Envelope{Op: OpHello}
	if err := empty.Decode(&payload); err == nil {
		t.Error("Decode of an empty payload succeeded")
	}
}

func TestOpcodeString(t *testing.T) {
	if got := OpInvalidSession.String(); got != "invalid_session" {
		t.Errorf("OpInvalidSession.String() = %q", got)
	}
	if got := Opcode(99).String(); got != "op(99)" {
		t.Errorf("Opcode(99).String() = %q", got)
	}
}

// wireCommand is an outbound command as the server sees it.
type wireCommand struct {
	Op      Opcode          `json:"op"`
	Payload json.RawMessage `json:"d"`
}

func decodeCommand(t *testing.T, data []byte) wireCommand {
	t.Helper()
	var command wireCommand
	if err := json.Unmarshal(data, &command); err != nil {
		t.Fatalf("decoding command %s: %v", data, err)
	}
	return command
}

func TestHeartbeatCommand(t *testing.T) {
	tests := []struct {
		name     string
		sequence int64
		want     string
	}{
		{name: "before first dispatch", sequence: noSequence, want: "null"},
		{name: "zero", sequence: 0, want: "0"},
		{name: "later", sequence: 1234, want: "1234"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := heartbeatCommand(test.sequence)
			if err != nil {
				t.Fatalf("heartbeatCommand: %v", err)
			}
			command := decodeCommand(t, data)
			if command.Op != OpHeartbeat {
				t.Errorf("op = %v, want heartbeat", command.Op)
			}
			if string(command.Payload) != test.want {
				t.Errorf("d = %s, want %s", command.Payload, test.want)
			}
		})
	}
}

func TestIdentifyNeverRequestsPayloadCompression(t *testing.T) {
	intents := 513
	data, err := identifyCommand(Identify{
		Token:      "token",
		Properties: IdentifyProperties{OS: "linux", Browser: "switchboard", Device: "switchboard"},
		Intents:    &intents,
		Compress:   true,
	})
	if err != nil {
		t.Fatalf("identifyCommand: %v", err)
	}
	command := decodeCommand(t, data)
	if command.Op != OpIdentify {
		t.Fatalf("op = %v, want identify", command.Op)
	}
	var identify map[string]any
	if err := json.Unmarshal(command.Payload, &identify); err != nil {
		t.Fatalf("decoding identify: %v", err)
	}
	if identify["compress"] != false {
		t.Errorf("compress = %v, want false", identify["compress"])
	}
	if identify["intents"] != float64(513) {
		t.Errorf("intents = %v, want 513", identify["intents"])
	}
	if _, ok := identify["presence"]; ok {
		t.Error("identify carries a presence it was not given")
	}
}

func TestResumeCommand(t *testing.T) {
	data, err := resumeCommand(Resume{Token: "token", SessionID: "abc", Sequence: 17})
	if err != nil {
		t.Fatalf("resumeCommand: %v", err)
	}
	command := decodeCommand(t, data)
	var resume Resume
	if err := json.Unmarshal(command.Payload, &resume); err != nil {
		t.Fatalf("decoding resume: %v", err)
	}
	if command.Op != OpResume || resume.SessionID != "abc" || resume.Sequence != 17 {
		t.Errorf("resume = op %v %+v", command.Op, resume)
	}
}
