// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the module's CBOR configuration.
//
// JSON is the gateway's wire format. CBOR is used for what the module
// writes itself: notification recordings and the payloads relayed to
// NATS. Sharing one encoder configuration keeps both byte-identical for
// the same notification.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2). Types
// implementing encoding.TextMarshaler, such as snowflake.ID, encode as
// CBOR text strings so IDs read the same in a recording as on the
// wire.
//
// Types tagged only with `json` (the lib/schema entities) are encoded
// through fxamacker/cbor's json tag fallback. Notification types use
// `cbor` tags because they never appear as JSON.
package codec
