// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package realtime forwards scheduling requests from sandboxed
// applications to RealtimeKit.
//
// A sandboxed application cannot talk to RealtimeKit directly, and the
// process IDs it knows are only meaningful inside its own PID
// namespace. [Bridge] sits between the two: for each request it asks
// the caller's [CallerIdentity] whether the caller shares the host's
// PID namespace, translates the process ID if it does not, and forwards
// the request to RealtimeKit through an [Invoker]. The bridge holds no
// per-request state and never blocks: forwarding returns as soon as the
// call is issued, and the reply is relayed from the invoker's
// continuation.
//
// Every request carries a [Completion], a one-shot sink that accepts
// exactly one result. The bridge completes it on exactly one path:
// immediately when PID mapping fails, or from the continuation once
// the request has been forwarded. A second completion attempt is
// refused by the type itself.
//
// Failures are reported as [*Error] with one of three kinds:
// [PIDMappingFailed], [UpstreamCallFailed] (the RealtimeKit error is
// preserved verbatim and reachable through errors.As), and
// [UnsupportedWireType] for property replies that are neither int32
// nor int64. Nothing is retried.
package realtime
