// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
)

// Outcome is the terminal state of a worker.
type Outcome int

const (
	// OutcomeRunning means the worker has not terminated yet.
	OutcomeRunning Outcome = iota

	// OutcomeSucceeded means the worker exited with status 0 or its
	// entry returned nil.
	OutcomeSucceeded

	// OutcomeFailed means a nonzero exit, a fatal signal, an entry
	// error, or a panic.
	OutcomeFailed

	// OutcomeCancelled means the host cancelled the worker.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrCancelled is the error of a lifecycle resolved by Cancel.
var ErrCancelled = errors.New("supervisor: worker cancelled")

// ExitError describes an external worker that exited unsuccessfully.
// Status follows the shell convention: the exit code, or 128 plus the
// signal number when Signal is set.
type ExitError struct {
	Status int
	Signal syscall.Signal
}

func (e *ExitError) Error() string {
	if e.Signal != 0 {
		return fmt.Sprintf("worker killed by signal %v (status %d)", e.Signal, e.Status)
	}
	return fmt.Sprintf("worker exited with status %d", e.Status)
}

// ExitCode returns Status, so process.ExitCode can propagate it.
func (e *ExitError) ExitCode() int {
	return e.Status
}

// Result is the resolved state of a Lifecycle.
type Result struct {
	Outcome Outcome

	// ExitStatus is the worker's exit status: the process exit code
	// for external workers, 0 or 1 for in-process workers.
	ExitStatus int

	// Err is nil for OutcomeSucceeded, ErrCancelled for
	// OutcomeCancelled, and the failure otherwise.
	Err error
}

// Lifecycle owns a running worker's termination outcome.
type Lifecycle struct {
	pid      int
	strategy Strategy
	cancel   func()

	done        chan struct{}
	resolveOnce sync.Once

	mu              sync.Mutex
	result          Result
	cancelRequested bool
}

func newLifecycle(strategy Strategy, pid int, cancel func()) *Lifecycle {
	return &Lifecycle{
		pid:      pid,
		strategy: strategy,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// resolve records the worker's termination and closes Done. Only the
// first call takes effect; it reports whether this call was it. A
// worker killed by Cancel's SIGKILL is reported as cancelled. Any
// other failure stays a failure even when Cancel was requested, since
// the worker got there first.
func (l *Lifecycle) resolve(result Result) bool {
	resolved := false
	l.resolveOnce.Do(func() {
		l.mu.Lock()
		if l.cancelRequested && result.Outcome == OutcomeFailed && killedByCancel(result) {
			result.Outcome = OutcomeCancelled
			result.Err = ErrCancelled
		}
		l.result = result
		l.mu.Unlock()
		close(l.done)
		resolved = true
	})
	return resolved
}

// killedByCancel reports whether result is the signature of the
// process-group kill Cancel sends.
func killedByCancel(result Result) bool {
	var exitErr *ExitError
	return errors.As(result.Err, &exitErr) && exitErr.Signal == syscall.SIGKILL
}

// PID returns the worker's process ID, or 0 for an in-process worker.
func (l *Lifecycle) PID() int {
	return l.pid
}

// Strategy returns the strategy the worker was launched with.
func (l *Lifecycle) Strategy() Strategy {
	return l.strategy
}

// Done is closed once the worker has terminated.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Result returns the resolved result. ok is false while the worker is
// still running.
func (l *Lifecycle) Result() (result Result, ok bool) {
	select {
	case <-l.done:
	default:
		return Result{Outcome: OutcomeRunning}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result, true
}

// Err returns the resolved error, or nil while the worker is running
// or after it succeeded.
func (l *Lifecycle) Err() error {
	result, _ := l.Result()
	return result.Err
}

// Cancel forcibly terminates the worker. It returns immediately; use
// Done or Wait to observe termination. An external worker's process
// group is killed and Done closes once it is reaped. An in-process
// worker resolves as cancelled at once. Has no effect once the worker
// has terminated.
func (l *Lifecycle) Cancel() {
	select {
	case <-l.done:
		return
	default:
	}
	l.mu.Lock()
	if l.cancelRequested {
		l.mu.Unlock()
		return
	}
	l.cancelRequested = true
	l.mu.Unlock()
	l.cancel()

	// A goroutine cannot be killed. The entry is left detached with a
	// cancelled context and whatever it returns later is only logged.
	if l.strategy == StrategyInProcess {
		l.resolve(Result{Outcome: OutcomeCancelled, ExitStatus: 1, Err: ErrCancelled})
	}
}

// Wait blocks until the worker terminates and returns its error. If
// ctx ends first the worker is cancelled and Wait still waits for it
// to terminate.
func (l *Lifecycle) Wait(ctx context.Context) error {
	select {
	case <-l.done:
	case <-ctx.Done():
		l.Cancel()
		<-l.done
	}
	return l.Err()
}
