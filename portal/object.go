// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package portal

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"github.com/bureau-foundation/realtime-portal/realtime"
)

// realtimeObject is the value exported on the bus. godbus publishes
// every exported method of it, so it has exactly the interface's
// methods and nothing else.
type realtimeObject struct {
	scheduler Scheduler
	identify  IdentifyFunc
	logger    *slog.Logger

	// requestContext is the parent of every forwarded call. It is
	// replaced on each Start.
	requestContext atomic.Pointer[context.Context]
}

func (o *realtimeObject) setContext(ctx context.Context) {
	o.requestContext.Store(&ctx)
}

func (o *realtimeObject) baseContext() context.Context {
	if ctx := o.requestContext.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

// MakeThreadRealtimeWithPID handles the method of the same name.
func (o *realtimeObject) MakeThreadRealtimeWithPID(sender dbus.Sender, process, thread uint64, priority uint32) *dbus.Error {
	ctx := o.baseContext()
	caller, dbusError := o.identifyCaller(ctx, sender)
	if dbusError != nil {
		return dbusError
	}
	completion, results := realtime.NewChannelCompletion[struct{}]()
	o.scheduler.SetThreadRealtime(ctx, caller, process, thread, priority, completion)
	return o.reply((<-results).Err)
}

// MakeThreadHighPriorityWithPID handles the method of the same name.
func (o *realtimeObject) MakeThreadHighPriorityWithPID(sender dbus.Sender, process, thread uint64, priority int32) *dbus.Error {
	ctx := o.baseContext()
	caller, dbusError := o.identifyCaller(ctx, sender)
	if dbusError != nil {
		return dbusError
	}
	completion, results := realtime.NewChannelCompletion[struct{}]()
	o.scheduler.SetThreadHighPriority(ctx, caller, process, thread, priority, completion)
	return o.reply((<-results).Err)
}

// GetProperty handles the method of the same name.
func (o *realtimeObject) GetProperty(propertyName string) (int64, *dbus.Error) {
	completion, results := realtime.NewChannelCompletion[int64]()
	o.scheduler.GetProperty(o.baseContext(), propertyName, completion)
	result := <-results
	if result.Err != nil {
		return 0, o.reply(result.Err)
	}
	return result.Value, nil
}

func (o *realtimeObject) identifyCaller(ctx context.Context, sender dbus.Sender) (realtime.CallerIdentity, *dbus.Error) {
	caller, err := o.identify(ctx, string(sender))
	if err != nil {
		o.logger.Warn("could not identify caller", "sender", string(sender), "error", err)
		return nil, toDBusError(fmt.Errorf("Could not identify caller: %w", err))
	}
	return caller, nil
}

func (o *realtimeObject) reply(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return toDBusError(err)
}
