// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bureau-foundation/inferencebridge/lib/clock"
	"github.com/bureau-foundation/inferencebridge/lib/fswatch"
)

const (
	// DefaultTimeout bounds how long Await waits for the worker.
	DefaultTimeout = 2 * time.Minute

	// DefaultPollInterval is the fixed backoff between existence
	// checks when no removal notification arrives.
	DefaultPollInterval = 50 * time.Millisecond
)

var (
	// ErrWorkerExited is returned by Await when the worker terminates
	// while the marker still exists.
	ErrWorkerExited = errors.New("readiness: worker exited before signalling ready")

	// ErrTimeout is returned by Await when the deadline passes first.
	ErrTimeout = errors.New("readiness: timed out waiting for worker")
)

// Marker is a readiness marker file owned by the host.
type Marker struct {
	path string
}

// Create makes a new empty marker in directory.
func Create(directory string) (*Marker, error) {
	file, err := os.CreateTemp(directory, "worker-*.ready")
	if err != nil {
		return nil, fmt.Errorf("creating readiness marker in %s: %w", directory, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return nil, fmt.Errorf("closing readiness marker %s: %w", file.Name(), err)
	}
	return &Marker{path: file.Name()}, nil
}

// Path returns the marker's filesystem path, which is handed to the
// worker.
func (m *Marker) Path() string {
	return m.path
}

// AwaitOptions tunes Await. The zero value uses the defaults.
type AwaitOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Await blocks until the worker deletes the marker. It fails with
// ErrWorkerExited if workerDone closes while the marker exists, with
// ErrTimeout once options.Timeout has elapsed, and with ctx.Err() if
// ctx ends first.
func (m *Marker) Await(ctx context.Context, workerDone <-chan struct{}, options AwaitOptions) error {
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	options.Clock = clock.OrReal(options.Clock)
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	// Set up the watch before the first existence check so a removal
	// in between is not missed. Polling covers a missing watcher.
	watcher, err := fswatch.WatchRemoval(m.path)
	if err != nil && !errors.Is(err, errors.ErrUnsupported) {
		options.Logger.Debug("readiness watch unavailable, polling only",
			"marker", m.path, "error", err)
	}
	defer watcher.Close()

	started := options.Clock.Now()
	deadline := options.Clock.After(options.Timeout)
	ticker := options.Clock.NewTicker(options.PollInterval)
	defer ticker.Stop()

	for {
		ready, err := m.removed()
		if err != nil {
			return err
		}
		if ready {
			options.Logger.Debug("worker signalled ready",
				"marker", m.path, "elapsed", options.Clock.Now().Sub(started))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-workerDone:
			// The worker may have signalled and then exited between
			// the check and the select.
			if ready, _ := m.removed(); ready {
				return nil
			}
			return ErrWorkerExited
		case <-deadline:
			return fmt.Errorf("%w after %v", ErrTimeout, options.Timeout)
		case <-watcher.Events():
		case <-ticker.C:
		}
	}
}

// removed reports whether the marker is gone.
func (m *Marker) removed() (bool, error) {
	_, err := os.Lstat(m.path)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	return false, fmt.Errorf("checking readiness marker %s: %w", m.path, err)
}

// Remove deletes the marker if it still exists. Used on host error
// paths; absence is not an error.
func (m *Marker) Remove() error {
	if m == nil {
		return nil
	}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing readiness marker %s: %w", m.path, err)
	}
	return nil
}

// Signal is called by the worker to announce readiness. It deletes the
// marker at path and fails if the marker is already gone, so a second
// signal is reported rather than silently accepted.
func Signal(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("signalling readiness: %w", err)
	}
	return nil
}
