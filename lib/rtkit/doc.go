// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rtkit is the client side of RealtimeKit, the system service
// that grants realtime and high-priority scheduling to threads.
//
// [Proxy] wraps a single D-Bus object handle for
// org.freedesktop.RealtimeKit1 on the system bus. It has one operation,
// [Proxy.Invoke], which issues a method call and runs a continuation
// when the reply (or an error) arrives. Invoke never blocks the caller.
// The handle is created once at startup by [Dial] and is read-only
// afterwards, so a single Proxy is shared by every request.
//
// RealtimeKit does not commit to a single integer width for its
// properties: MaxRealtimePriority and MinNiceLevel are int32 while
// RTTimeUSecMax is int64. [WireValue] is a tagged union over the
// variant returned by org.freedesktop.DBus.Properties.Get, and
// [DecodeProperty] normalizes it to int64. Any other wire type yields
// [ErrUnsupportedWireType]; there is no fallback value.
package rtkit
