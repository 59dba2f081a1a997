// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package exchange implements the file-backed message channel between
// an inference host and its worker.
//
// A channel is a pair of append-only queue files. Each side writes one
// file and reads the other, so every file has exactly one writer and
// one reader. Messages travel as frames: a 24-byte header followed by
// the stored payload. The header's first word is the commit word. The
// writer lays down the whole frame with a zero commit word and then
// writes the commit word in place, so a reader that observes a
// committed frame also observes all of its bytes. A reader that races
// an in-progress write sees a zero commit word and reports that no
// frame is available yet.
//
// End-of-stream is a header-only frame committed with [endMagic]. After
// a reader consumes it, [Channel.TryRead] and [Channel.Read] return
// [io.EOF].
//
// Payloads may be compressed with LZ4 or zstd (see [CompressionTag]).
// Every stored payload carries a truncated BLAKE3 keyed hash so that a
// damaged queue file is detected as [ErrCorruptFrame] rather than
// delivered as a wrong message.
//
// Readers are woken by inotify on Linux (see lib/fswatch) and always
// fall back to polling, so a lost notification costs at most one poll
// interval.
package exchange
