// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the switchboard configuration file.
//
// Configuration is loaded from a single file specified by either the
// SWITCHBOARD_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no automatic file search. Files
// ending in .json or .jsonc are parsed as JSON with comments; anything
// else is YAML.
//
// The file may carry environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches.
//
// ${VAR} and ${VAR:-default} patterns are expanded in the gateway URL,
// the token file path and the NATS URL. The session token never
// appears in the file: [Config.Token] reads it from SWITCHBOARD_TOKEN
// or from gateway.token_file.
//
// This package depends on no other switchboard packages.
package config
