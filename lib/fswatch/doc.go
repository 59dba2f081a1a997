// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fswatch delivers file change notifications used to wake the
// bridge's wait loops early.
//
// [WatchFile] signals when a file's contents change (an exchange queue
// gaining a committed frame). [WatchRemoval] signals when a named file
// disappears from its directory (the readiness marker being deleted by
// the worker). Both are backed by inotify on Linux. Notifications are
// coalesced into a channel of capacity one: a receiver learns that
// something changed, not how many times.
//
// Notifications are an optimization, never the only wake-up source.
// Every caller also polls on a ticker, so a missed event, or a platform
// where [WatchFile] returns [errors.ErrUnsupported], costs latency and
// never correctness. All [Watcher] methods are safe on a nil receiver:
// a nil watcher's Events channel is nil and blocks forever in a select.
package fswatch
