// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.TextMarshaler = cbor.TextMarshalerTextString
	options.Time = cbor.TimeRFC3339Nano
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building encoder: " + err.Error())
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	options := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}
	mode, err := options.DecMode()
	if err != nil {
		panic("codec: building decoder: " + err.Error())
	}
	return mode
}

// RawMessage defers decoding of one CBOR item.
type RawMessage = cbor.RawMessage

// Encoder and Decoder stream a CBOR sequence, one item per call.
type (
	Encoder = cbor.Encoder
	Decoder = cbor.Decoder
)

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes data into v, ignoring fields v does not declare.
// Maps decoded into an untyped target are map[string]any.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

func NewEncoder(w io.Writer) *Encoder { return encMode.NewEncoder(w) }

func NewDecoder(r io.Reader) *Decoder { return decMode.NewDecoder(r) }
