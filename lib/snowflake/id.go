// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snowflake

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Epoch is the platform epoch that snowflake timestamps count from.
var Epoch = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// ID is a snowflake identifier. The zero value means "no ID".
type ID uint64

// Parse converts the decimal string form of a snowflake into an ID.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty snowflake")
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", raw, err)
	}
	return ID(value), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constants.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the decimal form of the ID.
func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// IsZero reports whether the ID is absent.
func (id ID) IsZero() bool { return id == 0 }

// Time returns the creation time encoded in the ID.
func (id ID) Time() time.Time {
	milliseconds := int64(id >> 22)
	return Epoch.Add(time.Duration(milliseconds) * time.Millisecond)
}

// FromTime returns the smallest ID that could have been created at t.
// Useful as a pagination bound: every ID issued at or after t compares
// greater than or equal to the result.
func FromTime(t time.Time) ID {
	milliseconds := t.Sub(Epoch).Milliseconds()
	if milliseconds < 0 {
		return 0
	}
	return ID(uint64(milliseconds) << 22)
}

// MarshalJSON encodes the ID as a JSON string. The zero ID encodes as
// null so optional ID fields round-trip as absent.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == 0 {
		return []byte("null"), nil
	}
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	if raw == "" {
		*id = 0
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler so IDs can be map keys
// in JSON objects and CBOR records.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
