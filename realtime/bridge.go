// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/realtime-portal/lib/rtkit"
)

// CallerIdentity is what the bridge needs to know about the
// application behind a request.
type CallerIdentity interface {
	// IsHost reports whether the caller runs in the host's PID
	// namespace, in which case its process IDs are used as given.
	IsHost() bool

	// MapPIDs rewrites pids in place from the caller's PID namespace
	// to the host's. On error pids is left unchanged.
	MapPIDs(pids []uint64) error
}

// Invoker forwards one call to RealtimeKit. [rtkit.Proxy] is the
// production implementation.
type Invoker interface {
	Invoke(ctx context.Context, method string, args []any, continuation rtkit.Continuation)
}

// Config holds configuration for creating a Bridge.
type Config struct {
	// Service is the RealtimeKit connection. Required.
	Service Invoker

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Bridge translates and forwards scheduling requests. A Bridge has no
// mutable state and is safe for concurrent use.
type Bridge struct {
	service Invoker
	logger  *slog.Logger
}

// NewBridge creates a Bridge.
func NewBridge(config Config) (*Bridge, error) {
	if config.Service == nil {
		return nil, fmt.Errorf("realtime: Service is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{service: config.Service, logger: logger}, nil
}

// SetThreadRealtime asks RealtimeKit to give threadID in processID the
// realtime priority level priority. processID is in the caller's PID
// namespace.
func (b *Bridge) SetThreadRealtime(ctx context.Context, caller CallerIdentity, processID, threadID uint64, priority uint32, completion *Completion[struct{}]) {
	b.forwardThreadRequest(ctx, caller, processID, threadID, priority, completion)
}

// SetThreadHighPriority asks RealtimeKit to raise threadID in processID
// to the high priority level priority, which may be negative.
//
// The request goes to the same RealtimeKit verb as SetThreadRealtime,
// with priority reinterpreted as uint32. RealtimeKit does publish a
// separate MakeThreadHighPriorityWithPID taking an int32, but callers
// depend on the current routing.
// TODO: switch to rtkit.MethodMakeThreadHighPriorityWithPID once the
// RealtimeKit versions we support are confirmed to implement it.
func (b *Bridge) SetThreadHighPriority(ctx context.Context, caller CallerIdentity, processID, threadID uint64, priority int32, completion *Completion[struct{}]) {
	b.forwardThreadRequest(ctx, caller, processID, threadID, uint32(priority), completion)
}

func (b *Bridge) forwardThreadRequest(ctx context.Context, caller CallerIdentity, processID, threadID uint64, priority uint32, completion *Completion[struct{}]) {
	hostProcessID, err := b.mapPIDIfNeeded(caller, processID)
	if err != nil {
		completion.Fail(err)
		return
	}

	b.logger.Debug("forwarding thread request",
		"method", rtkit.MethodMakeThreadRealtimeWithPID,
		"process_id", processID,
		"host_process_id", hostProcessID,
		"thread_id", threadID,
		"priority", priority,
	)

	args := []any{hostProcessID, threadID, priority}
	b.service.Invoke(ctx, rtkit.MethodMakeThreadRealtimeWithPID, args, func(_ []any, err error) {
		if err != nil {
			completion.Fail(&Error{Kind: UpstreamCallFailed, Err: err})
			return
		}
		completion.Succeed(struct{}{})
	})
}

// GetProperty reads a RealtimeKit property such as
// MaxRealtimePriority. The reply is normalized to int64.
func (b *Bridge) GetProperty(ctx context.Context, propertyName string, completion *Completion[int64]) {
	args := []any{rtkit.Interface, propertyName}
	b.service.Invoke(ctx, rtkit.MethodPropertiesGet, args, func(body []any, err error) {
		if err != nil {
			completion.Fail(&Error{Kind: UpstreamCallFailed, Err: err})
			return
		}

		value, err := rtkit.DecodeProperty(body)
		if err != nil {
			b.logger.Warn("realtime error getting property",
				"property", propertyName,
				"error", err,
			)
			completion.Fail(&Error{Kind: UnsupportedWireType, Message: invalidResponseTypeMessage, Err: err})
			return
		}
		completion.Succeed(value)
	})
}

// mapPIDIfNeeded returns processID in the host PID namespace.
func (b *Bridge) mapPIDIfNeeded(caller CallerIdentity, processID uint64) (uint64, error) {
	if caller == nil {
		return 0, b.pidMappingError(errors.New("no caller identity"))
	}
	if caller.IsHost() {
		return processID, nil
	}

	pids := []uint64{processID}
	if err := caller.MapPIDs(pids); err != nil {
		return 0, b.pidMappingError(err)
	}
	return pids[0], nil
}

func (b *Bridge) pidMappingError(cause error) error {
	mappingError := &Error{
		Kind:    PIDMappingFailed,
		Message: pidMappingPrefix + cause.Error(),
		Err:     cause,
	}
	b.logger.Warn("realtime error", "error", mappingError)
	return mappingError
}
