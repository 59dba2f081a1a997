// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/bureau-foundation/inferencebridge/lib/process"
)

// drainGrace bounds how long the waiter waits for the output drains
// after the worker exits. A grandchild that inherited the pipes can
// otherwise hold them open indefinitely.
const drainGrace = 2 * time.Second

func launchExternal(spec Spec, logger *slog.Logger) (*Lifecycle, error) {
	if spec.Command == "" {
		return nil, errors.New("external strategy requires a command")
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = spec.Env
	cmd.Dir = spec.Dir
	cmd.SysProcAttr = processAttributes()

	// os.Pipe rather than StdoutPipe: cmd.Wait must not close the read
	// ends before the drains have consumed everything.
	stdoutReader, stdoutWriter, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrReader, stderrWriter, err := os.Pipe()
	if err != nil {
		stdoutReader.Close()
		stdoutWriter.Close()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	startErr := cmd.Start()
	// The child holds its own copies of the write ends.
	stdoutWriter.Close()
	stderrWriter.Close()
	if startErr != nil {
		stdoutReader.Close()
		stderrReader.Close()
		return nil, fmt.Errorf("starting worker %s: %w", spec.Command, startErr)
	}

	pid := cmd.Process.Pid
	logger = logger.With("pid", pid)
	// The group outlives the leader while grandchildren remain, and the
	// kernel does not reuse a live group's ID, so killing after reap is
	// still confined to this worker's descendants.
	lifecycle := newLifecycle(StrategyExternal, pid, func() {
		if err := killProcessGroup(pid); err != nil && !errors.Is(err, syscall.ESRCH) {
			logger.Warn("killing worker process group failed", "error", err)
		}
	})

	var drains sync.WaitGroup
	drains.Add(2)
	go func() {
		defer drains.Done()
		drainLines(stdoutReader, "stdout", logger, spec.MaxLineLength)
	}()
	go func() {
		defer drains.Done()
		drainLines(stderrReader, "stderr", logger, spec.MaxLineLength)
	}()

	logger.Info("worker started", "command", spec.Command, "strategy", StrategyExternal)

	go func() {
		waitErr := cmd.Wait()

		drained := make(chan struct{})
		go func() {
			drains.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-spec.Clock.After(drainGrace):
			logger.Warn("worker output still open after exit, closing pipes")
		}
		// Closing the read ends unblocks any drain still reading.
		stdoutReader.Close()
		stderrReader.Close()
		<-drained

		result := externalResult(waitErr)
		lifecycle.resolve(result)
		final, _ := lifecycle.Result()
		logger.Info("worker exited",
			"outcome", final.Outcome,
			"exit_status", final.ExitStatus,
			"error", final.Err,
		)
	}()

	return lifecycle, nil
}

// externalResult translates the error from cmd.Wait.
func externalResult(waitErr error) Result {
	if waitErr == nil {
		return Result{Outcome: OutcomeSucceeded}
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			code, signal := process.DescribeWaitStatus(status)
			return Result{
				Outcome:    OutcomeFailed,
				ExitStatus: code,
				Err:        &ExitError{Status: code, Signal: signal},
			}
		}
		return Result{
			Outcome:    OutcomeFailed,
			ExitStatus: exitErr.ExitCode(),
			Err:        &ExitError{Status: exitErr.ExitCode()},
		}
	}
	return Result{
		Outcome:    OutcomeFailed,
		ExitStatus: -1,
		Err:        fmt.Errorf("waiting for worker: %w", waitErr),
	}
}
