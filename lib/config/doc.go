// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the realtime portal.
//
// Configuration is loaded from a single file specified by either the
// BUREAU_REALTIME_CONFIG environment variable (via [Load]) or a
// --config flag (via [LoadFile]). There is no ~/.config discovery and
// no automatic file search. Unlike most Bureau components the file is
// optional: [Default] describes a working session portal, and the
// binary runs on defaults when no file is given.
//
// Files are YAML. Files ending in .json or .jsonc are accepted too;
// comments and trailing commas are stripped before parsing.
//
// Variable expansion is performed on path and address fields after
// loading: ${HOME}, ${XDG_RUNTIME_DIR} and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Portal, RealtimeKit, AppInfo, Log
//   - [Default] -- returns a Config with the standard bus names
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every problem at once
package config
