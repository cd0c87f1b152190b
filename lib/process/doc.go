// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler for the
// realtime portal. It is the one place where raw output to stderr is
// written before (or after) the structured logger exists.
package process
