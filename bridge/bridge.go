// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/inferencebridge/lib/clock"
	"github.com/bureau-foundation/inferencebridge/lib/exchange"
	"github.com/bureau-foundation/inferencebridge/lib/logging"
	"github.com/bureau-foundation/inferencebridge/lib/readiness"
	"github.com/bureau-foundation/inferencebridge/lib/supervisor"
	"github.com/bureau-foundation/inferencebridge/lib/version"
	"github.com/bureau-foundation/inferencebridge/lib/worker"
)

// State is a bridge's position in its lifecycle.
type State int

const (
	// StateUnopened is a new bridge, or one whose Open failed.
	StateUnopened State = iota

	// StateOpen accepts Predict calls.
	StateOpen

	// StateBroken follows an abandoned Predict. Only Close is useful.
	StateBroken

	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateBroken:
		return "broken"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options carries runtime dependencies that do not belong in the
// configuration file.
type Options struct {
	// Logger receives bridge and worker events. Nil means
	// slog.Default().
	Logger *slog.Logger

	// Clock drives every poll and timeout. Nil means the real clock.
	Clock clock.Clock

	// Environ is the base environment of an external worker. Nil means
	// os.Environ().
	Environ []string

	// Entry runs an in-process worker. Nil means worker.Run.
	Entry supervisor.EntryFunc
}

// Bridge is a host's connection to one inference worker.
type Bridge struct {
	config  Config
	options Options
	logger  *slog.Logger
	clock   clock.Clock

	mu         sync.Mutex
	state      State
	session    *session
	lastResult *supervisor.Result
}

// New returns an unopened bridge. The configuration is validated by
// Open.
func New(config Config, options Options) *Bridge {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		config:  config.WithDefaults(),
		options: options,
		logger:  logger,
		clock:   clock.OrReal(options.Clock),
	}
}

// State returns the current state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// WorkerResult returns the worker's termination result once Close has
// joined it.
func (b *Bridge) WorkerResult() (supervisor.Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastResult == nil {
		return supervisor.Result{}, false
	}
	return *b.lastResult, true
}

// session is everything one Open allocates.
type session struct {
	id         string
	directory  string
	inputPath  string
	outputPath string
	marker     *readiness.Marker
	channel    *exchange.Channel
	lifecycle  *supervisor.Lifecycle
	logger     *slog.Logger
}

// Open allocates the session files, launches the worker, and blocks
// until it signals readiness. On any failure everything is torn down
// and the bridge stays unopened.
func (b *Bridge) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateUnopened:
	case StateClosed:
		return errors.New("bridge: closed bridges cannot be reopened")
	default:
		return fmt.Errorf("bridge: already %s", b.state)
	}
	if err := b.config.Validate(); err != nil {
		return err
	}

	s, err := b.startSession(ctx)
	if err != nil {
		return err
	}
	b.session = s
	b.state = StateOpen
	return nil
}

func (b *Bridge) startSession(ctx context.Context) (*session, error) {
	id := uuid.NewString()
	logger := b.logger.With("session", id, "predictor", b.config.Predictor)

	directory, err := os.MkdirTemp(b.config.TempDir, "inference-"+id+"-*")
	if err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	s := &session{id: id, directory: directory, logger: logger}

	fail := func(err error) (*session, error) {
		s.abort()
		return nil, err
	}

	if s.inputPath, err = createQueue(directory, "queue-*.input"); err != nil {
		return fail(err)
	}
	if s.outputPath, err = createQueue(directory, "queue-*.output"); err != nil {
		return fail(err)
	}
	if s.marker, err = readiness.Create(directory); err != nil {
		return fail(err)
	}

	compression, err := exchange.ParseCompressionTag(b.config.Compression)
	if err != nil {
		return fail(err)
	}
	// The host reads the output queue and writes the input queue.
	s.channel, err = exchange.Open(s.outputPath, s.inputPath, exchange.Options{
		Compression:  compression,
		PollInterval: b.config.PollInterval,
		Clock:        b.clock,
	})
	if err != nil {
		return fail(fmt.Errorf("opening exchange channel: %w", err))
	}

	spec, err := b.launchSpec(s, logger)
	if err != nil {
		return fail(err)
	}
	logger.Info("launching inference worker",
		"strategy", spec.Strategy,
		"command", spec.Command,
		"session_directory", directory,
		"version", version.Info(),
	)
	s.lifecycle, err = supervisor.Launch(ctx, spec)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrLaunch, err))
	}

	err = s.marker.Await(ctx, s.lifecycle.Done(), readiness.AwaitOptions{
		Timeout:      b.config.HandshakeTimeout,
		PollInterval: b.config.PollInterval,
		Clock:        b.clock,
		Logger:       logger,
	})
	if err != nil {
		if errors.Is(err, readiness.ErrWorkerExited) {
			if workerErr := s.lifecycle.Err(); workerErr != nil {
				err = fmt.Errorf("%w: %w", err, workerErr)
			}
		}
		return fail(fmt.Errorf("%w: %w", ErrHandshake, err))
	}

	logger.Info("inference worker ready", "pid", s.lifecycle.PID())
	return s, nil
}

// launchSpec builds the supervisor spec for the configured strategy.
func (b *Bridge) launchSpec(s *session, logger *slog.Logger) (supervisor.Spec, error) {
	workerConfig := b.config.Worker
	if workerConfig.Compression == "" {
		workerConfig.Compression = b.config.Compression
	}
	encoded, err := workerConfig.Encode()
	if err != nil {
		return supervisor.Spec{}, err
	}
	// Swapped relative to the host: the worker reads the input queue.
	args := worker.Arguments{
		Predictor:     b.config.Predictor,
		ReadPath:      s.inputPath,
		WritePath:     s.outputPath,
		EncodedConfig: encoded,
		ReadyPath:     s.marker.Path(),
	}.Slice()

	if workerConfig.ThreadMode {
		entry := b.options.Entry
		if entry == nil {
			workerLogger := logger.With("worker", "in-process")
			entry = func(ctx context.Context, args []string) error {
				return worker.Run(ctx, args, worker.RunOptions{
					Logger:       workerLogger,
					PollInterval: b.config.PollInterval,
					Clock:        b.clock,
				})
			}
		}
		return supervisor.Spec{
			Strategy: supervisor.StrategyInProcess,
			Args:     args,
			Entry:    entry,
			Logger:   logger,
			Clock:    b.clock,
		}, nil
	}

	command, err := resolveWorkerBinary(b.config.WorkerBinary)
	if err != nil {
		return supervisor.Spec{}, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	base := b.options.Environ
	if base == nil {
		base = os.Environ()
	}
	logLevel := logging.LevelName(workerLogLevel(logger))
	return supervisor.Spec{
		Strategy: supervisor.StrategyExternal,
		Command:  command,
		Args:     args,
		Env:      workerEnvironment(base, b.config, logLevel),
		Logger:   logger,
		Clock:    b.clock,
	}, nil
}

func createQueue(directory, pattern string) (string, error) {
	file, err := os.CreateTemp(directory, pattern)
	if err != nil {
		return "", fmt.Errorf("creating queue file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing queue file %s: %w", file.Name(), err)
	}
	return file.Name(), nil
}

// Predict sends one encoded batch and returns the worker's encoded
// response. It fails with ErrWorkerExited if the worker terminates
// first. If ctx ends first the bridge becomes Broken and ctx.Err() is
// returned.
func (b *Bridge) Predict(ctx context.Context, batch []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
	case StateBroken:
		return nil, ErrBroken
	default:
		return nil, ErrNotOpen
	}
	s := b.session

	if err := s.channel.Write(batch); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	ticker := b.clock.NewTicker(s.channel.PollInterval())
	defer ticker.Stop()
	for {
		response, ok, err := s.channel.TryRead()
		if ok {
			return response, nil
		}
		if err != nil {
			return nil, b.responseFailure(ctx, s, err)
		}

		select {
		case <-ctx.Done():
			b.state = StateBroken
			s.logger.Warn("prediction abandoned, bridge is broken", "error", ctx.Err())
			return nil, ctx.Err()
		case <-s.lifecycle.Done():
			// A response written just before a clean exit must not
			// be lost.
			if response, ok, _ := s.channel.TryRead(); ok {
				return response, nil
			}
			return nil, workerExitedError(s.lifecycle)
		case <-s.channel.Changed():
		case <-ticker.C:
		}
	}
}

// responseFailure turns a read error into Predict's error. Caller
// holds b.mu.
func (b *Bridge) responseFailure(ctx context.Context, s *session, err error) error {
	if errors.Is(err, io.EOF) {
		// The worker finished its stream without answering; it is
		// exiting or has exited.
		select {
		case <-s.lifecycle.Done():
			return workerExitedError(s.lifecycle)
		case <-ctx.Done():
			b.state = StateBroken
			return ctx.Err()
		}
	}
	b.state = StateBroken
	return fmt.Errorf("reading response: %w", err)
}

func workerExitedError(lifecycle *supervisor.Lifecycle) error {
	result, _ := lifecycle.Result()
	if result.Err != nil {
		return fmt.Errorf("%w: %w", ErrWorkerExited, result.Err)
	}
	return fmt.Errorf("%w without a response (outcome %s, exit status %d)",
		ErrWorkerExited, result.Outcome, result.ExitStatus)
}

// PredictRows is not supported: the bridge exchanges whole encoded
// batches only. It always returns an error wrapping
// errors.ErrUnsupported.
func (b *Bridge) PredictRows(ctx context.Context, rows [][]byte, batchSize int) ([][]byte, error) {
	return nil, fmt.Errorf("bridge: row-wise prediction: %w", errors.ErrUnsupported)
}

// Close writes end-of-stream, deletes the session files, and waits for
// the worker to exit. A worker that failed is reported as an error. If
// ctx ends before the worker exits, the worker is killed and Close
// still succeeds. Close is safe on an unopened bridge and idempotent.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return nil
	}
	s := b.session
	b.session = nil
	b.state = StateClosed
	if s == nil {
		return nil
	}

	err := s.close(ctx)
	if result, ok := s.lifecycle.Result(); ok {
		b.lastResult = &result
	}
	return err
}

// close is the orderly shutdown of an open session.
func (s *session) close(ctx context.Context) error {
	var errs []error
	if err := s.channel.MarkWriteFinished(); err != nil {
		errs = append(errs, fmt.Errorf("writing end-of-stream: %w", err))
	}
	if err := s.channel.Close(); err != nil {
		s.logger.Warn("closing exchange channel failed", "error", err)
	}
	// The worker keeps its open descriptors; unlinking is safe.
	s.removeQueues()

	waitErr := s.lifecycle.Wait(ctx)
	switch {
	case waitErr == nil:
	case errors.Is(waitErr, supervisor.ErrCancelled) && ctx.Err() != nil:
		s.logger.Warn("worker did not exit in time and was killed", "error", ctx.Err())
	default:
		errs = append(errs, fmt.Errorf("worker failed: %w", waitErr))
	}

	s.removeDirectory()
	if len(errs) > 0 {
		return fmt.Errorf("closing bridge: %w", errors.Join(errs...))
	}
	s.logger.Info("inference bridge closed")
	return nil
}

// abort tears down a session whose Open failed. Cleanup failures are
// logged and never replace the original error.
func (s *session) abort() {
	if s.lifecycle != nil {
		s.lifecycle.Cancel()
		<-s.lifecycle.Done()
	}
	if err := s.channel.Close(); err != nil {
		s.logger.Warn("closing exchange channel failed", "error", err)
	}
	s.removeQueues()
	s.removeDirectory()
}

func (s *session) removeQueues() {
	for _, path := range []string{s.inputPath, s.outputPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("removing queue file failed", "path", path, "error", err)
		}
	}
}

func (s *session) removeDirectory() {
	if err := s.marker.Remove(); err != nil {
		s.logger.Warn("removing readiness marker failed", "error", err)
	}
	if err := os.RemoveAll(s.directory); err != nil {
		s.logger.Warn("removing session directory failed",
			"directory", s.directory, "error", err)
	}
}
