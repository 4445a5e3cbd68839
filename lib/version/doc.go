// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of switchboard is running.
//
// The release pipeline stamps [GitCommit], [GitDirty], [BuildTime] and
// [Version] with -ldflags -X. Unstamped builds (go run, go test) keep
// the development defaults.
//
// The CLI prints [Info] for --version, or [Full] with --verbose, and
// the gateway client identifies itself with [Short] as its
// browser_version property.
package version
