// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package appinfo

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// ErrPIDNotFound is returned by MapPIDs when a PID has no process in
// the caller's PID namespace.
var ErrPIDNotFound = errors.New("appinfo: pid not found in sandbox")

// Kind is the sandboxing technology an application runs under.
type Kind int

const (
	KindHost Kind = iota
	KindFlatpak
	KindSnap
)

func (k Kind) String() string {
	switch k {
	case KindFlatpak:
		return "flatpak"
	case KindSnap:
		return "snap"
	default:
		return "host"
	}
}

// Info describes one caller. It is created per request by
// [Resolver.Lookup] and not mutated afterwards.
type Info struct {
	Kind Kind

	// AppID is the Flatpak application ID or snap name. Empty for host
	// callers.
	AppID string

	// PID is the caller's process ID in the resolver's PID namespace.
	PID int

	procRoot          string
	pidNamespace      uint64
	ownerPIDNamespace uint64
}

// IsHost reports whether the caller is an unsandboxed host process.
func (i *Info) IsHost() bool {
	return i.Kind == KindHost
}

// LogValue implements slog.LogValuer.
func (i *Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", i.Kind.String()),
		slog.String("app_id", i.AppID),
		slog.Int("pid", i.PID),
	)
}

// MapPIDs rewrites pids from the caller's PID namespace into the
// resolver's. pids is only modified when every PID was found.
func (i *Info) MapPIDs(pids []uint64) error {
	if i.pidNamespace == i.ownerPIDNamespace {
		return nil
	}

	wanted := make(map[uint64]uint64, len(pids))
	for _, pid := range pids {
		wanted[pid] = 0
	}
	unresolved := len(wanted)

	entries, err := os.ReadDir(i.procRoot)
	if err != nil {
		return fmt.Errorf("appinfo: reading %s: %w", i.procRoot, err)
	}
	for _, entry := range entries {
		if unresolved == 0 {
			break
		}
		if _, parseError := strconv.Atoi(entry.Name()); parseError != nil {
			continue
		}
		processDirectory := filepath.Join(i.procRoot, entry.Name())

		// Processes that vanished or belong to other users fail here;
		// neither can be in the caller's sandbox as far as we can see.
		namespace, err := namespaceInode(processDirectory)
		if err != nil || namespace != i.pidNamespace {
			continue
		}
		namespacePIDs, err := readNSpid(filepath.Join(processDirectory, "status"))
		if err != nil || len(namespacePIDs) < 2 {
			continue
		}

		local := namespacePIDs[len(namespacePIDs)-1]
		if hostPID, ok := wanted[local]; ok && hostPID == 0 {
			wanted[local] = namespacePIDs[0]
			unresolved--
		}
	}

	for _, pid := range pids {
		if wanted[pid] == 0 {
			return fmt.Errorf("%w: %d", ErrPIDNotFound, pid)
		}
	}
	for index, pid := range pids {
		pids[index] = wanted[pid]
	}
	return nil
}
