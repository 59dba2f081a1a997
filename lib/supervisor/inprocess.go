// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"

	"github.com/bureau-foundation/inferencebridge/lib/process"
)

func launchInProcess(ctx context.Context, spec Spec, logger *slog.Logger) (*Lifecycle, error) {
	if spec.Entry == nil {
		return nil, errors.New("in-process strategy requires an entry function")
	}

	// The worker outlives the launch context; only Cancel stops it.
	entryContext, cancel := context.WithCancel(context.WithoutCancel(ctx))
	lifecycle := newLifecycle(StrategyInProcess, 0, cancel)
	args := slices.Clone(spec.Args)

	logger.Info("worker started", "strategy", StrategyInProcess)

	go func() {
		defer cancel()
		err := runEntry(entryContext, spec.Entry, args)

		result := Result{Outcome: OutcomeSucceeded}
		if err != nil {
			result = Result{
				Outcome:    OutcomeFailed,
				ExitStatus: process.ExitCode(err),
				Err:        fmt.Errorf("in-process worker: %w", err),
			}
		}
		if !lifecycle.resolve(result) {
			logger.Info("cancelled in-process worker returned",
				"error", err,
			)
			return
		}
		final, _ := lifecycle.Result()
		logger.Info("worker exited",
			"outcome", final.Outcome,
			"exit_status", final.ExitStatus,
			"error", final.Err,
		)
	}()

	return lifecycle, nil
}

// runEntry calls entry and converts a panic into an error.
func runEntry(ctx context.Context, entry EntryFunc, args []string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v\n%s", recovered, debug.Stack())
		}
	}()
	return entry(ctx, args)
}
