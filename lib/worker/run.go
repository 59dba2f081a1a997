// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/inferencebridge/lib/clock"
	"github.com/bureau-foundation/inferencebridge/lib/exchange"
	"github.com/bureau-foundation/inferencebridge/lib/readiness"
)

// ArgumentCount is the number of positional arguments a worker takes.
const ArgumentCount = 5

// Arguments are a worker's positional arguments. ReadPath and
// WritePath are from the worker's point of view: it reads the host's
// input queue and writes the host's output queue.
type Arguments struct {
	Predictor     string
	ReadPath      string
	WritePath     string
	EncodedConfig string
	ReadyPath     string
}

// ParseArguments validates and names the positional arguments.
func ParseArguments(args []string) (Arguments, error) {
	if len(args) != ArgumentCount {
		return Arguments{}, fmt.Errorf("expected %d arguments (predictor, read queue, write queue, config, ready marker), got %d",
			ArgumentCount, len(args))
	}
	parsed := Arguments{
		Predictor:     args[0],
		ReadPath:      args[1],
		WritePath:     args[2],
		EncodedConfig: args[3],
		ReadyPath:     args[4],
	}
	for i, value := range args {
		if value == "" {
			return Arguments{}, fmt.Errorf("argument %d is empty", i+1)
		}
	}
	return parsed, nil
}

// Slice returns the arguments in positional order.
func (a Arguments) Slice() []string {
	return []string{a.Predictor, a.ReadPath, a.WritePath, a.EncodedConfig, a.ReadyPath}
}

// RunOptions configures Run. The zero value is usable.
type RunOptions struct {
	// Logger receives worker events. Nil means slog.Default().
	Logger *slog.Logger

	// PollInterval is the request queue's poll fallback. Zero means
	// exchange.DefaultPollInterval.
	PollInterval time.Duration

	// Clock drives the poll ticker. Nil means the real clock.
	Clock clock.Clock
}

// Run is the worker entry point. It returns nil after answering every
// request and reading end-of-stream, ctx.Err() if ctx is cancelled,
// and an error for any setup or prediction failure. Readiness is
// signalled only after setup has fully succeeded, so a worker that
// fails setup exits with the marker still present.
func Run(ctx context.Context, args []string, options RunOptions) error {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	arguments, err := ParseArguments(args)
	if err != nil {
		return err
	}
	config, err := DecodeConfig(arguments.EncodedConfig)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid worker config: %w", err)
	}
	factory, err := Lookup(arguments.Predictor)
	if err != nil {
		return err
	}
	compression, err := exchange.ParseCompressionTag(config.Compression)
	if err != nil {
		return err
	}
	logger = logger.With("predictor", arguments.Predictor)

	channel, err := exchange.Open(arguments.ReadPath, arguments.WritePath, exchange.Options{
		Compression:  compression,
		PollInterval: options.PollInterval,
		Clock:        options.Clock,
	})
	if err != nil {
		return fmt.Errorf("opening exchange channel: %w", err)
	}
	defer channel.Close()

	predictor, err := factory(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("setting up predictor %q: %w", arguments.Predictor, err)
	}
	defer func() {
		if err := predictor.Close(); err != nil {
			logger.Warn("closing predictor failed", "error", err)
		}
	}()

	if err := readiness.Signal(arguments.ReadyPath); err != nil {
		return err
	}
	logger.Info("worker ready", "model_path", config.ModelPath)

	return serve(ctx, channel, predictor, logger)
}

// serve answers requests in order until end-of-stream.
func serve(ctx context.Context, channel *exchange.Channel, predictor Predictor, logger *slog.Logger) error {
	for served := 0; ; served++ {
		request, err := channel.Read(ctx)
		if errors.Is(err, io.EOF) {
			logger.Info("end of stream", "requests", served)
			if err := channel.MarkWriteFinished(); err != nil {
				return fmt.Errorf("finishing response queue: %w", err)
			}
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading request %d: %w", served, err)
		}

		response, err := predictor.Predict(ctx, request)
		if err != nil {
			return fmt.Errorf("predicting request %d: %w", served, err)
		}
		if err := channel.Write(response); err != nil {
			return fmt.Errorf("writing response %d: %w", served, err)
		}
		logger.Debug("request served", "index", served,
			"request_bytes", len(request), "response_bytes", len(response))
	}
}
