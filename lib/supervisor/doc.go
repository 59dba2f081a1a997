// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor launches an inference worker and tracks it until
// it terminates.
//
// Two strategies run the same worker entry point with the same
// positional arguments:
//
//   - [StrategyExternal] starts a child process in its own process
//     group. Its stdout and stderr are drained line by line into the
//     structured logger by two goroutines that never stall the child.
//     On Linux the child also receives SIGKILL if the host dies.
//   - [StrategyInProcess] runs an [EntryFunc] on a goroutine. It exists
//     for debugging a worker under the host's debugger and race
//     detector.
//
// Either way the caller gets a [Lifecycle] whose Done channel closes
// exactly once, after the worker has terminated and (for external
// workers) its output has been fully drained. [Lifecycle.Cancel] kills
// the whole process group, or cancels the entry's context for an
// in-process worker, and resolves the handle as [OutcomeCancelled].
package supervisor
