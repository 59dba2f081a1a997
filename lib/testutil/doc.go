// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a time.After fallback) so that tests
// waiting on watcher events, lifecycle handles, or worker goroutines
// fail with a message instead of hanging the test binary. These are the
// only helpers that use wall-clock timeouts; code under test takes a
// clock.Clock instead.
//
// [UniqueID] generates monotonically increasing identifiers for naming
// per-test predictors and payloads.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
