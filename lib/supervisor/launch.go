// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/inferencebridge/lib/clock"
)

// Strategy selects how a worker is run.
type Strategy int

const (
	// StrategyExternal runs the worker as a child process.
	StrategyExternal Strategy = iota

	// StrategyInProcess runs the worker's entry function on a
	// goroutine in the host process.
	StrategyInProcess
)

func (s Strategy) String() string {
	switch s {
	case StrategyExternal:
		return "external"
	case StrategyInProcess:
		return "in-process"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// EntryFunc is a worker's entry point. args are the worker's
// positional arguments, identical to the command-line arguments an
// external worker receives. The function must return promptly once
// ctx is cancelled.
type EntryFunc func(ctx context.Context, args []string) error

// DefaultMaxLineLength is the longest worker output line that is
// logged. Longer lines are discarded.
const DefaultMaxLineLength = 64 << 10

// Spec describes a worker to launch.
type Spec struct {
	Strategy Strategy

	// Command is the worker executable (external strategy).
	Command string

	// Args are the worker's positional arguments, passed to Command or
	// to Entry unchanged.
	Args []string

	// Env is the complete environment of an external worker. Nil
	// inherits the host environment.
	Env []string

	// Dir is the working directory of an external worker. Empty means
	// the host's.
	Dir string

	// Entry is the worker entry point (in-process strategy).
	Entry EntryFunc

	// Logger receives lifecycle events and worker output. Nil means
	// slog.Default().
	Logger *slog.Logger

	// MaxLineLength bounds logged worker output lines. Zero means
	// DefaultMaxLineLength.
	MaxLineLength int

	// Clock times the post-exit drain grace period. Nil means the
	// real clock.
	Clock clock.Clock
}

// Launch starts the worker described by spec. ctx bounds only the
// launch itself: the worker runs until it exits or the returned
// Lifecycle is cancelled.
func Launch(ctx context.Context, spec Spec) (*Lifecycle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}
	spec.Clock = clock.OrReal(spec.Clock)
	if spec.MaxLineLength <= 0 {
		spec.MaxLineLength = DefaultMaxLineLength
	}

	switch spec.Strategy {
	case StrategyExternal:
		return launchExternal(spec, logger)
	case StrategyInProcess:
		return launchInProcess(ctx, spec, logger)
	default:
		return nil, fmt.Errorf("unknown launch strategy %v", spec.Strategy)
	}
}
