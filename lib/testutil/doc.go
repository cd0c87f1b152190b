// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the realtime portal
// packages.
//
// [RequireReceive] and [RequireNoReceive] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. Completions in this module
// are delivered from goroutines started by the RealtimeKit proxy, so
// tests observe them through channels and these helpers.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no internal dependencies.
package testutil
