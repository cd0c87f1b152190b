// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package appinfo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// namespaceInode returns the inode of processDirectory/ns/pid, which
// identifies the process's PID namespace.
func namespaceInode(processDirectory string) (uint64, error) {
	var stat unix.Stat_t
	path := filepath.Join(processDirectory, "ns", "pid")
	if err := unix.Stat(path, &stat); err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return uint64(stat.Ino), nil
}

// readNSpid parses the NSpid line of a /proc/<pid>/status file. The
// first value is the PID in the procfs mount's namespace and the last
// is the PID in the process's own namespace.
func readNSpid(statusPath string) ([]uint64, error) {
	file, err := os.Open(statusPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "NSpid:") {
			continue
		}
		fields := strings.Fields(line)
		pids := make([]uint64, 0, len(fields)-1)
		for _, field := range fields[1:] {
			pid, parseError := strconv.ParseUint(field, 10, 64)
			if parseError != nil {
				return nil, fmt.Errorf("parse NSpid %q: %w", field, parseError)
			}
			pids = append(pids, pid)
		}
		return pids, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no NSpid: line in %s", statusPath)
}

// readFlatpakAppID reads the application name from a .flatpak-info
// keyfile. It returns os.ErrNotExist (wrapped) when the file is absent.
func readFlatpakAppID(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	section := ""
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			continue
		}
		if section != "Application" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if found && strings.TrimSpace(key) == "name" {
			return strings.TrimSpace(value), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s has no [Application] name", path)
}

// readSnapName returns the snap name from a /proc/<pid>/cgroup file, or
// "" when no cgroup belongs to a snap. Snap units are named
// snap.<name>.<app>-<id>.scope (or .service).
func readSnapName(cgroupPath string) (string, error) {
	data, err := os.ReadFile(cgroupPath)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		for _, component := range strings.Split(line, "/") {
			rest, found := strings.CutPrefix(component, "snap.")
			if !found {
				continue
			}
			name, _, found := strings.Cut(rest, ".")
			if found && name != "" {
				return name, nil
			}
		}
	}
	return "", nil
}
