// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package appinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// procTree is a synthetic procfs. PID namespaces are plain files under
// namespaces/; a process joins one by hard-linking it as ns/pid, so all
// members share an inode just as they do in the real procfs.
type procTree struct {
	t    *testing.T
	root string
}

func newProcTree(t *testing.T) *procTree {
	t.Helper()
	tree := &procTree{t: t, root: t.TempDir()}
	if err := os.MkdirAll(filepath.Join(tree.root, "namespaces"), 0o755); err != nil {
		t.Fatalf("creating namespaces: %v", err)
	}
	tree.addNamespace("host")
	tree.link("self", "host")
	return tree
}

func (p *procTree) addNamespace(name string) {
	p.t.Helper()
	if err := os.WriteFile(filepath.Join(p.root, "namespaces", name), nil, 0o644); err != nil {
		p.t.Fatalf("creating namespace %s: %v", name, err)
	}
}

func (p *procTree) link(processName, namespace string) {
	p.t.Helper()
	nsDirectory := filepath.Join(p.root, processName, "ns")
	if err := os.MkdirAll(nsDirectory, 0o755); err != nil {
		p.t.Fatalf("creating %s: %v", nsDirectory, err)
	}
	if err := os.Link(filepath.Join(p.root, "namespaces", namespace), filepath.Join(nsDirectory, "pid")); err != nil {
		p.t.Fatalf("linking namespace: %v", err)
	}
}

// addProcess creates /<hostPID> in namespace. nspid lists the PID in
// each nested namespace, outermost first.
func (p *procTree) addProcess(hostPID int, namespace string, nspid ...int) {
	p.t.Helper()
	p.link(strconv.Itoa(hostPID), namespace)
	columns := make([]string, 0, len(nspid)+1)
	columns = append(columns, strconv.Itoa(hostPID))
	for _, pid := range nspid {
		columns = append(columns, strconv.Itoa(pid))
	}
	status := fmt.Sprintf("Name:\tapp\nPid:\t%d\nNSpid:\t%s\n", hostPID, strings.Join(columns, "\t"))
	p.writeFile(hostPID, "status", status)
}

func (p *procTree) writeFile(pid int, name, content string) {
	p.t.Helper()
	path := filepath.Join(p.root, strconv.Itoa(pid), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		p.t.Fatalf("writing %s: %v", path, err)
	}
}

func (p *procTree) resolver(bus ProcessIDLookup) *Resolver {
	p.t.Helper()
	resolver, err := NewResolver(ResolverConfig{
		ProcRoot: p.root,
		Bus:      bus,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		p.t.Fatalf("NewResolver: %v", err)
	}
	return resolver
}

const flatpakInfo = `[Application]
name=org.example.Player
runtime=runtime/org.freedesktop.Platform/x86_64/23.08

[Instance]
instance-id=1234567
`

// sandboxTree has one host process and a Flatpak sandbox with three
// processes, plus an unrelated sandbox whose local PIDs overlap.
func sandboxTree(t *testing.T) *procTree {
	tree := newProcTree(t)
	tree.addProcess(100, "host")

	tree.addNamespace("player")
	tree.addProcess(9000, "player", 1)
	tree.addProcess(9001, "player", 42)
	tree.addProcess(9002, "player", 43)
	tree.writeFile(9001, "root/.flatpak-info", flatpakInfo)

	tree.addNamespace("other")
	tree.addProcess(7000, "other", 42)
	tree.writeFile(7000, "root/.flatpak-info", "[Application]\nname=org.example.Other\n")
	return tree
}

type fakeBus map[string]uint32

func (f fakeBus) ConnectionUnixProcessID(_ context.Context, sender string) (uint32, error) {
	pid, ok := f[sender]
	if !ok {
		return 0, fmt.Errorf("unknown sender %s", sender)
	}
	return pid, nil
}

func TestLookupClassifiesCallers(t *testing.T) {
	tree := sandboxTree(t)
	tree.addProcess(300, "host")
	tree.writeFile(300, "cgroup", "0::/user.slice/user-1000.slice/user@1000.service/app.slice/snap.ardour.ardour-5678.scope\n")

	resolver := tree.resolver(fakeBus{":1.10": 100, ":1.11": 9001, ":1.12": 300})

	tests := []struct {
		sender string
		kind   Kind
		appID  string
		host   bool
	}{
		{":1.10", KindHost, "", true},
		{":1.11", KindFlatpak, "org.example.Player", false},
		{":1.12", KindSnap, "ardour", false},
	}
	for _, test := range tests {
		t.Run(test.sender, func(t *testing.T) {
			info, err := resolver.Lookup(context.Background(), test.sender)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if info.Kind != test.kind || info.AppID != test.appID || info.IsHost() != test.host {
				t.Errorf("info = {%v %q host=%v}, want {%v %q host=%v}",
					info.Kind, info.AppID, info.IsHost(), test.kind, test.appID, test.host)
			}
		})
	}

	if _, err := resolver.Lookup(context.Background(), ":1.99"); err == nil {
		t.Error("expected error for unknown sender")
	}
}

func TestMapPIDsFlatpak(t *testing.T) {
	resolver := sandboxTree(t).resolver(nil)
	info, err := resolver.ForPID(9001)
	if err != nil {
		t.Fatalf("ForPID: %v", err)
	}

	pids := []uint64{42, 43, 1}
	if err := info.MapPIDs(pids); err != nil {
		t.Fatalf("MapPIDs: %v", err)
	}
	want := []uint64{9001, 9002, 9000}
	for index := range want {
		if pids[index] != want[index] {
			t.Errorf("pids = %v, want %v", pids, want)
			break
		}
	}
}

func TestMapPIDsOnlyMatchesCallerNamespace(t *testing.T) {
	resolver := sandboxTree(t).resolver(nil)
	info, err := resolver.ForPID(7000)
	if err != nil {
		t.Fatalf("ForPID: %v", err)
	}

	pids := []uint64{42}
	if err := info.MapPIDs(pids); err != nil {
		t.Fatalf("MapPIDs: %v", err)
	}
	if pids[0] != 7000 {
		t.Errorf("pid 42 mapped to %d, want 7000 (not the other sandbox's 9001)", pids[0])
	}
}

func TestMapPIDsNotFoundLeavesInputUnchanged(t *testing.T) {
	resolver := sandboxTree(t).resolver(nil)
	info, err := resolver.ForPID(9001)
	if err != nil {
		t.Fatalf("ForPID: %v", err)
	}

	pids := []uint64{42, 77}
	err = info.MapPIDs(pids)
	if !errors.Is(err, ErrPIDNotFound) {
		t.Fatalf("MapPIDs error = %v, want ErrPIDNotFound", err)
	}
	if !strings.Contains(err.Error(), "77") {
		t.Errorf("error %q does not name the missing pid", err)
	}
	if pids[0] != 42 || pids[1] != 77 {
		t.Errorf("pids modified on failure: %v", pids)
	}
}

func TestMapPIDsSharedNamespaceIsIdentity(t *testing.T) {
	tree := newProcTree(t)
	tree.addProcess(300, "host")
	tree.writeFile(300, "cgroup", "0::/snap.ardour.ardour-1.scope\n")
	info, err := tree.resolver(nil).ForPID(300)
	if err != nil {
		t.Fatalf("ForPID: %v", err)
	}
	if info.IsHost() {
		t.Fatal("snap caller reported as host")
	}

	pids := []uint64{12345}
	if err := info.MapPIDs(pids); err != nil {
		t.Fatalf("MapPIDs: %v", err)
	}
	if pids[0] != 12345 {
		t.Errorf("pid changed to %d in a shared namespace", pids[0])
	}
}

func TestForPIDMissingProcess(t *testing.T) {
	resolver := newProcTree(t).resolver(nil)
	if _, err := resolver.ForPID(4242); err == nil {
		t.Error("expected error for a pid with no procfs entry")
	}
}

func TestNewResolverRequiresSelf(t *testing.T) {
	if _, err := NewResolver(ResolverConfig{ProcRoot: t.TempDir()}); err == nil {
		t.Error("expected error when procfs has no self entry")
	}
}

func TestReadSnapName(t *testing.T) {
	tests := []struct {
		cgroup string
		want   string
	}{
		{"0::/user.slice/app.slice/snap.firefox.firefox-99.scope\n", "firefox"},
		{"12:pids:/system.slice/snap.lxd.daemon.service\n0::/\n", "lxd"},
		{"0::/user.slice/user-1000.slice/session-2.scope\n", ""},
		{"0::/snapshot.slice\n", ""},
	}
	directory := t.TempDir()
	for index, test := range tests {
		path := filepath.Join(directory, strconv.Itoa(index))
		if err := os.WriteFile(path, []byte(test.cgroup), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := readSnapName(path)
		if err != nil {
			t.Fatalf("readSnapName: %v", err)
		}
		if got != test.want {
			t.Errorf("readSnapName(%q) = %q, want %q", test.cgroup, got, test.want)
		}
	}
}
