// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// Stamped at link time:
//
//	go build -ldflags "-X github.com/bureau-foundation/switchboard/lib/version.Version=1.4.0" ./cmd/switchboard
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
)

// Info is the one-line build description: version, commit (marked
// -dirty for a modified tree) and build time.
func Info() string {
	commit := GitCommit
	if GitDirty == "true" {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, BuildTime)
}

// Full adds the Go toolchain and target platform to Info.
func Full() string {
	return Info() + "\n  Go: " + runtime.Version() + "\n  Platform: " + runtime.GOOS + "/" + runtime.GOARCH
}

// Short is the bare version.
func Short() string { return Version }
