// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rtkit

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Well-known names for the RealtimeKit service.
const (
	BusName    = "org.freedesktop.RealtimeKit1"
	ObjectPath = dbus.ObjectPath("/org/freedesktop/RealtimeKit1")
	Interface  = "org.freedesktop.RealtimeKit1"
)

// Fully qualified method names accepted by [Proxy.Invoke].
const (
	MethodMakeThreadRealtimeWithPID = Interface + ".MakeThreadRealtimeWithPID"

	// MethodMakeThreadHighPriorityWithPID is RealtimeKit's nice-level
	// verb. The portal does not currently call it; see the realtime
	// package for why.
	MethodMakeThreadHighPriorityWithPID = Interface + ".MakeThreadHighPriorityWithPID"

	MethodPropertiesGet = "org.freedesktop.DBus.Properties.Get"
)

// Properties published by RealtimeKit.
const (
	PropertyMaxRealtimePriority = "MaxRealtimePriority"
	PropertyMinNiceLevel        = "MinNiceLevel"
	PropertyRTTimeUSecMax       = "RTTimeUSecMax"
)

// Continuation receives the reply body of a forwarded call, or the
// error that ended it. It runs exactly once per Invoke, on a goroutine
// owned by the Proxy.
type Continuation func(body []any, err error)

// Proxy issues asynchronous calls to RealtimeKit.
type Proxy struct {
	object dbus.BusObject
}

// NewProxy wraps an existing bus object. Tests pass a fake here; the
// binary uses [Dial].
func NewProxy(object dbus.BusObject) *Proxy {
	return &Proxy{object: object}
}

// Dial connects to the system bus (or to address, when non-empty) and
// returns a Proxy for the RealtimeKit object along with the connection,
// which the caller must close. Nothing is sent on the bus: the service
// is not auto-started, no properties are loaded and no signals are
// subscribed until the first Invoke.
func Dial(address, busName string, objectPath dbus.ObjectPath) (*Proxy, *dbus.Conn, error) {
	if busName == "" {
		busName = BusName
	}
	if objectPath == "" {
		objectPath = ObjectPath
	}

	var connection *dbus.Conn
	var err error
	if address == "" {
		connection, err = dbus.ConnectSystemBus()
	} else {
		connection, err = dbus.Connect(address)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("rtkit: connecting to system bus: %w", err)
	}

	return NewProxy(connection.Object(busName, objectPath)), connection, nil
}

// Invoke calls method with args and returns immediately. continuation
// runs when the reply arrives, when the call fails to send, or when ctx
// is cancelled, whichever comes first; godbus guarantees the call is
// delivered to its Done channel exactly once in each case.
func (p *Proxy) Invoke(ctx context.Context, method string, args []any, continuation Continuation) {
	done := make(chan *dbus.Call, 1)
	p.object.GoWithContext(ctx, method, 0, done, args...)
	go func() {
		call := <-done
		continuation(call.Body, call.Err)
	}()
}
