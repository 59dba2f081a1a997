// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// processAttributes puts the worker in its own process group so Cancel
// reaches every process it spawned, and asks the kernel to SIGKILL it
// when the host goes away.
//
// Pdeathsig fires when the forking OS thread exits, not the process.
// Go only retires threads that a goroutine locked and then abandoned,
// which nothing on the launch path does.
func processAttributes() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}

// killProcessGroup sends SIGKILL to every process in the worker's
// group (negative PID).
func killProcessGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}
