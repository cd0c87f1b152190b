// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import "errors"

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	// PIDMappingFailed means the caller's process ID could not be
	// translated into the host PID namespace. RealtimeKit was not
	// contacted.
	PIDMappingFailed ErrorKind = iota + 1

	// UpstreamCallFailed means RealtimeKit (or the bus between us)
	// rejected the forwarded call.
	UpstreamCallFailed

	// UnsupportedWireType means a property reply was not an int32 or
	// int64.
	UnsupportedWireType
)

func (k ErrorKind) String() string {
	switch k {
	case PIDMappingFailed:
		return "PIDMappingFailed"
	case UpstreamCallFailed:
		return "UpstreamCallFailed"
	case UnsupportedWireType:
		return "UnsupportedWireType"
	default:
		return "Unknown"
	}
}

const (
	pidMappingPrefix           = "Could not map pid: "
	invalidResponseTypeMessage = "Invalid response type received"
)

// Error is the failure delivered to a request's Completion.
type Error struct {
	Kind ErrorKind

	// Message is what the caller sees. When empty, the cause's own
	// message is used unchanged.
	Message string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) ErrorKind {
	var realtimeError *Error
	if errors.As(err, &realtimeError) {
		return realtimeError.Kind
	}
	return 0
}
