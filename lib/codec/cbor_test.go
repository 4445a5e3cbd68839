// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/bureau-foundation/switchboard/lib/schema"
	"github.com/bureau-foundation/switchboard/lib/snowflake"
)

type sampleRecord struct {
	Kind    string       `cbor:"kind"`
	GuildID snowflake.ID `cbor:"guild_id,omitempty"`
	Count   int          `cbor:"count"`
}

func TestSnowflakeEncodesAsText(t *testing.T) {
	data, err := Marshal(snowflake.ID(175928847299117063))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Major type 3 (text string) occupies the top three bits.
	if data[0]>>5 != 3 {
		t.Fatalf("snowflake encoded with major type %d, want text string", data[0]>>5)
	}
	var decoded snowflake.ID
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != 175928847299117063 {
		t.Errorf("decoded = %d", decoded)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding is not deterministic: %x != %x", first, again)
		}
	}
}

func TestSchemaJSONTagFallback(t *testing.T) {
	role := schema.Role{ID: 9, Name: "mod", Position: 4, Permissions: schema.PermissionKickMembers}
	data, err := Marshal(role)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var generic map[string]any
	if err := Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := generic["position"]; !ok {
		t.Errorf("json tag name not used for CBOR key: %v", generic)
	}

	var decoded schema.Role
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != role {
		t.Errorf("decoded = %+v, want %+v", decoded, role)
	}
}

func TestStreamSequence(t *testing.T) {
	records := []sampleRecord{
		{Kind: "connected", Count: 1},
		{Kind: "entity_updated", GuildID: 42, Count: 2},
		{Kind: "disconnected"},
	}
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index, want := range records {
		var got sampleRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", index, err)
		}
		if got != want {
			t.Errorf("record %d = %+v, want %+v", index, got, want)
		}
	}
	var extra sampleRecord
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("Decode past end = %v, want io.EOF", err)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var record sampleRecord
	if err := Unmarshal([]byte{0xff, 0x00}, &record); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}
