// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/inferencebridge/lib/readiness"
	"github.com/bureau-foundation/inferencebridge/lib/supervisor"
	"github.com/bureau-foundation/inferencebridge/lib/testutil"
	"github.com/bureau-foundation/inferencebridge/lib/worker"
)

// newStuckBridge returns an in-process bridge whose entry blocks in a
// call that ignores its context, the way a native model load or
// inference call does. signal selects whether the entry deletes the
// readiness marker first.
func newStuckBridge(t *testing.T, signal bool, configure func(*Config)) *testBridge {
	t.Helper()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	tempDir := t.TempDir()
	config := Config{
		Predictor:        worker.EchoPredictor,
		HandshakeTimeout: 30 * time.Second,
		PollInterval:     20 * time.Millisecond,
		TempDir:          tempDir,
		Worker:           worker.Config{ThreadMode: true},
	}
	if configure != nil {
		configure(&config)
	}
	bridge := New(config, Options{
		Logger: slog.New(slog.DiscardHandler),
		Entry: func(ctx context.Context, args []string) error {
			if signal {
				parsed, err := worker.ParseArguments(args)
				if err != nil {
					return err
				}
				if err := readiness.Signal(parsed.ReadyPath); err != nil {
					return err
				}
			}
			<-release
			return nil
		},
	})
	return &testBridge{Bridge: bridge, tempDir: tempDir}
}

func TestCloseDeadlineAbandonsStuckInProcessWorker(t *testing.T) {
	bridge := newStuckBridge(t, true, nil)
	if err := bridge.Open(testContext(t)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	closed := make(chan error, 1)
	go func() { closed <- bridge.Close(ctx) }()

	if err := testutil.RequireReceive(t, closed, 5*time.Second, "Close past its deadline"); err != nil {
		t.Errorf("Close = %v, want nil after abandoning the worker", err)
	}
	result, ok := bridge.WorkerResult()
	if !ok || result.Outcome != supervisor.OutcomeCancelled {
		t.Errorf("worker result = %+v (ok %v), want cancelled", result, ok)
	}
	bridge.requireEmptyTempDir(t)
}

func TestHandshakeTimeoutAbandonsStuckInProcessWorker(t *testing.T) {
	bridge := newStuckBridge(t, false, func(config *Config) {
		config.HandshakeTimeout = 200 * time.Millisecond
	})

	ctx := testContext(t)
	opened := make(chan error, 1)
	go func() { opened <- bridge.Open(ctx) }()

	err := testutil.RequireReceive(t, opened, 5*time.Second, "Open past its handshake timeout")
	if !errors.Is(err, ErrHandshake) || !errors.Is(err, readiness.ErrTimeout) {
		t.Fatalf("Open = %v, want ErrHandshake wrapping readiness.ErrTimeout", err)
	}
	if bridge.State() != StateUnopened {
		t.Errorf("State = %v, want unopened", bridge.State())
	}
	bridge.requireEmptyTempDir(t)
}
