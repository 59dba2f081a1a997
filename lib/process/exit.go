// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Fatal writes "error: err" to stderr and exits with ExitCode(err).
// Use it in main() for errors from run() where the structured logger
// may not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitCode(err))
}

// ExitCode maps an error to a process exit code: 0 for nil, the
// child's own code for an exec.ExitError (128 plus the signal number
// when it was killed), the code reported by any error with an
// ExitCode() int method, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			code, _ := DescribeWaitStatus(status)
			return code
		}
		return exitErr.ExitCode()
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

// DescribeWaitStatus returns the shell-style exit code for a wait
// status and the terminating signal, if any.
func DescribeWaitStatus(status syscall.WaitStatus) (code int, signal syscall.Signal) {
	switch {
	case status.Exited():
		return status.ExitStatus(), 0
	case status.Signaled():
		return 128 + int(status.Signal()), status.Signal()
	default:
		return 1, 0
	}
}
