// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package appinfo identifies the application behind a D-Bus caller and
// translates process IDs out of its sandbox.
//
// [Resolver.Lookup] asks the session bus for the caller's host PID and
// classifies the process by inspecting procfs:
//
//   - Flatpak: /proc/<pid>/root/.flatpak-info exists. The app ID is the
//     name key of its [Application] group.
//   - Snap: a cgroup line names a snap.<name>.* unit.
//   - Host: anything else.
//
// The result, [Info], also records the inode of the caller's PID
// namespace. [Info.MapPIDs] uses it to translate namespace-local PIDs:
// when the caller shares the resolver's own PID namespace (host and
// snap callers) the PIDs are already valid; otherwise every process in
// procfs whose ns/pid has the same inode is examined, and the last
// column of its NSpid status line (the PID as the sandbox sees it) is
// matched against the requested PID. The first column is the host PID.
//
// The procfs root is configurable so tests can build a synthetic tree.
package appinfo
