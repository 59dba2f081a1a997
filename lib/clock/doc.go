// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the bridge's
// wait loops.
//
// The readiness handshake, the exchange channel's blocking read, and
// the bridge's predict race all wait on a mix of file events, worker
// termination, poll ticks, and deadlines. They take a Clock instead of
// calling time.After or time.NewTicker so that timeout paths can be
// tested without sleeping: production code uses Real(), tests use
// Fake() and drive time with Advance.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go marker.Await(ctx, done, readiness.AwaitOptions{Clock: c, Timeout: time.Minute})
//	c.WaitForTimers(2)      // poll ticker and deadline registered
//	c.Advance(time.Minute)  // deadline fires deterministically
package clock
