// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Switchboard connects to a chat gateway, keeps an in-memory cache of
// the session's state and prints every change it observes.
//
// Configuration comes from the file named by --config or
// SWITCHBOARD_CONFIG. The session token is read from SWITCHBOARD_TOKEN
// or the configured token file. Notifications can additionally be
// recorded to a CBOR file with --record and republished to NATS with
// --nats-url. SIGINT or SIGTERM closes the session cleanly.
package main
