// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-realtime-portal lets sandboxed applications ask RealtimeKit for
// realtime or high thread priority.
//
// It connects to the system bus for RealtimeKit and to the session bus,
// where it exports org.freedesktop.portal.Realtime and owns the portal
// bus name. Requests from Flatpak applications carry PIDs from the
// sandbox's PID namespace; they are translated to host PIDs before being
// forwarded.
//
// With --query the binary instead reads one RealtimeKit property,
// prints it and exits, which is useful when diagnosing why requests are
// being refused:
//
//	bureau-realtime-portal --query MaxRealtimePriority
package main
