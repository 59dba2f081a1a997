// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the structured loggers used by the inference
// binaries.
//
// When stderr is a terminal the logger uses slog.TextHandler for
// human-readable output. When stderr is piped (a worker under its host,
// CI, scripts) it uses slog.JSONHandler so the host and downstream log
// ingestion can parse every line. The host forwards its level to the
// worker through [LevelEnv].
package logging
