// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix && !linux

package supervisor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// processAttributes puts the worker in its own process group. There is
// no parent-death signal outside Linux, so a worker orphaned by a host
// crash keeps waiting for requests until it is killed.
func processAttributes() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}
