// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package appinfo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/godbus/dbus/v5"
)

// DefaultProcRoot is where procfs is normally mounted.
const DefaultProcRoot = "/proc"

// ProcessIDLookup returns the host PID of the process that owns a bus
// connection.
type ProcessIDLookup interface {
	ConnectionUnixProcessID(ctx context.Context, sender string) (uint32, error)
}

// BusLookup implements ProcessIDLookup with the bus daemon's
// GetConnectionUnixProcessID method.
type BusLookup struct {
	connection *dbus.Conn
}

// NewBusLookup returns a BusLookup on connection.
func NewBusLookup(connection *dbus.Conn) *BusLookup {
	return &BusLookup{connection: connection}
}

// ConnectionUnixProcessID implements ProcessIDLookup.
func (b *BusLookup) ConnectionUnixProcessID(ctx context.Context, sender string) (uint32, error) {
	var pid uint32
	err := b.connection.BusObject().CallWithContext(ctx,
		"org.freedesktop.DBus.GetConnectionUnixProcessID", 0, sender).Store(&pid)
	if err != nil {
		return 0, fmt.Errorf("appinfo: looking up pid of %s: %w", sender, err)
	}
	return pid, nil
}

// ResolverConfig holds configuration for creating a Resolver.
type ResolverConfig struct {
	// ProcRoot is the procfs mount. Default: /proc.
	ProcRoot string

	// Bus resolves bus names to PIDs. Required for Lookup; ForPID
	// works without it.
	Bus ProcessIDLookup

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Resolver builds an Info for each caller.
type Resolver struct {
	procRoot          string
	bus               ProcessIDLookup
	ownerPIDNamespace uint64
	logger            *slog.Logger
}

// NewResolver creates a Resolver. It records the PID namespace of the
// current process (procfs "self"), against which callers are compared.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	procRoot := config.ProcRoot
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ownerNamespace, err := namespaceInode(filepath.Join(procRoot, "self"))
	if err != nil {
		return nil, fmt.Errorf("appinfo: reading own pid namespace: %w", err)
	}

	return &Resolver{
		procRoot:          procRoot,
		bus:               config.Bus,
		ownerPIDNamespace: ownerNamespace,
		logger:            logger,
	}, nil
}

// Lookup identifies the application that owns the bus name sender.
func (r *Resolver) Lookup(ctx context.Context, sender string) (*Info, error) {
	if r.bus == nil {
		return nil, fmt.Errorf("appinfo: resolver has no bus lookup configured")
	}
	pid, err := r.bus.ConnectionUnixProcessID(ctx, sender)
	if err != nil {
		return nil, err
	}
	info, err := r.ForPID(int(pid))
	if err != nil {
		return nil, fmt.Errorf("appinfo: identifying %s: %w", sender, err)
	}
	r.logger.Debug("resolved caller", "sender", sender, "app", info)
	return info, nil
}

// ForPID identifies the application running as pid.
func (r *Resolver) ForPID(pid int) (*Info, error) {
	processDirectory := filepath.Join(r.procRoot, strconv.Itoa(pid))

	namespace, err := namespaceInode(processDirectory)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Kind:              KindHost,
		PID:               pid,
		procRoot:          r.procRoot,
		pidNamespace:      namespace,
		ownerPIDNamespace: r.ownerPIDNamespace,
	}

	appID, err := readFlatpakAppID(filepath.Join(processDirectory, "root", ".flatpak-info"))
	switch {
	case err == nil:
		info.Kind = KindFlatpak
		info.AppID = appID
		return info, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading flatpak metadata: %w", err)
	}

	snapName, err := readSnapName(filepath.Join(processDirectory, "cgroup"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading cgroup: %w", err)
	}
	if snapName != "" {
		info.Kind = KindSnap
		info.AppID = snapName
	}
	return info, nil
}
