// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache defines the boundary between the gateway core and the
// store that holds decoded entities.
//
// The event dispatcher writes through [Writer]. Every event's writes
// are bracketed by Begin and End so a store can make a multi-entity
// update atomic. The permission resolver and applications read through
// [Reader].
//
// [Memory] is a complete in-memory implementation. Writes inside a
// transaction are staged and applied together at End, so concurrent
// readers observe either none or all of one event's changes. Readers
// on the writing goroutine see the state as of the last End.
package cache
