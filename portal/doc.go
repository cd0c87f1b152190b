// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package portal exports the org.freedesktop.portal.Realtime interface
// on the session bus.
//
// [Portal] is the transport in front of [realtime.Bridge]. Each incoming
// method call is identified (the sender's bus name is turned into a
// [realtime.CallerIdentity] by the configured [IdentifyFunc]), handed to
// the bridge with a fresh [realtime.Completion], and answered when that
// completion fires. godbus runs every method call on its own goroutine,
// so waiting for the completion only holds up the one caller.
//
// Methods:
//
//	MakeThreadRealtimeWithPID(t process, t thread, u priority)
//	MakeThreadHighPriorityWithPID(t process, t thread, i priority)
//	GetProperty(s property_name) -> (x value)
//
// The interface also carries a read-only "version" property and
// standard introspection data.
//
// Errors that originated at RealtimeKit are returned with their D-Bus
// name and body intact. Everything else is reported as
// org.freedesktop.portal.Error.Failed with the error text as message.
package portal
