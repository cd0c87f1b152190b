// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	originalVersion, originalCommit, originalTime := Version, GitCommit, BuildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = originalVersion, originalCommit, originalTime
	})

	Version = "1.2.3"
	GitCommit = "abc1234"
	BuildTime = "2026-10-18T00:00:00Z"

	if got, want := Info(), "1.2.3 (abc1234, 2026-10-18T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	var buffer bytes.Buffer
	Fprint(&buffer, "bureau-realtime-portal")
	if !strings.HasPrefix(buffer.String(), "bureau-realtime-portal 1.2.3 ") {
		t.Errorf("Fprint output = %q", buffer.String())
	}

	if !strings.Contains(Full(), "Go: ") {
		t.Errorf("Full() missing Go version: %q", Full())
	}
}
