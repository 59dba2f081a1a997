// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint and exit-status helpers for the
// inference binaries.
//
// [Fatal] reports an error to stderr before or after the structured
// logger exists and exits. [ExitCode] and [DescribeWaitStatus]
// translate a child's termination into the shell convention (exit
// status, or 128 plus the signal number) so that the host and the
// worker binary agree on what a worker's exit means.
package process
