// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "errors"

var (
	// ErrLaunch wraps failures to start the worker.
	ErrLaunch = errors.New("bridge: launching worker failed")

	// ErrHandshake wraps failures of the readiness handshake: the
	// worker died, never signalled within the timeout, or the host
	// gave up.
	ErrHandshake = errors.New("bridge: worker handshake failed")

	// ErrWorkerExited is returned by Predict when the worker terminates
	// before producing the response. The lifecycle error, if any, is
	// wrapped alongside it.
	ErrWorkerExited = errors.New("bridge: worker exited")

	// ErrNotOpen is returned by Predict on a bridge that is not open.
	ErrNotOpen = errors.New("bridge: not open")

	// ErrBroken is returned by Predict after an earlier Predict was
	// abandoned mid-flight. Close the bridge and open a new one.
	ErrBroken = errors.New("bridge: request/response pairing lost, bridge must be closed")
)
