// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package readiness implements the startup handshake between an
// inference host and the worker it spawns.
//
// The host creates an empty marker file before spawning the worker and
// passes the marker path as the worker's last argument. The worker
// deletes the marker (see [Signal]) once it has bound both queue files
// and finished loading its model. The host waits for that deletion with
// [Marker.Await], which also watches for the worker dying first and
// for a deadline.
//
// The marker is deleted exactly once on the success path, by the
// worker. The host removes it only when cleaning up after a failure.
package readiness
