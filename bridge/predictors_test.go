// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bureau-foundation/inferencebridge/lib/codec"
	"github.com/bureau-foundation/inferencebridge/lib/worker"
)

// Test predictors. Registered in init so the re-executed test binary
// has them too. Behaviour is tuned through worker properties.
const (
	predictorNegate     = "test-negate"
	predictorSlowStart  = "test-slow-start"
	predictorFailSetup  = "test-fail-setup"
	predictorCrashAfter = "test-crash-after"
	predictorNeverReady = "test-never-ready"
	predictorHang       = "test-hang"
)

func init() {
	worker.Register(predictorNegate, func(ctx context.Context, config worker.Config, logger *slog.Logger) (worker.Predictor, error) {
		return predictFunc(negate), nil
	})

	// Sleeps for properties["delay"] before becoming ready.
	worker.Register(predictorSlowStart, func(ctx context.Context, config worker.Config, logger *slog.Logger) (worker.Predictor, error) {
		delay, err := time.ParseDuration(config.Properties["delay"])
		if err != nil {
			return nil, fmt.Errorf("parsing delay: %w", err)
		}
		select {
		case <-time.After(delay): //nolint:realclock simulated model load
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return predictFunc(negate), nil
	})

	worker.Register(predictorFailSetup, func(ctx context.Context, config worker.Config, logger *slog.Logger) (worker.Predictor, error) {
		return nil, errors.New("model file is corrupt")
	})

	// Answers properties["answers"] requests, then fails.
	worker.Register(predictorCrashAfter, func(ctx context.Context, config worker.Config, logger *slog.Logger) (worker.Predictor, error) {
		limit, err := strconv.Atoi(config.Properties["answers"])
		if err != nil {
			return nil, fmt.Errorf("parsing answers: %w", err)
		}
		served := 0
		return predictFunc(func(ctx context.Context, request []byte) ([]byte, error) {
			if served == limit {
				return nil, fmt.Errorf("crashing after %d answers", limit)
			}
			served++
			return negate(ctx, request)
		}), nil
	})

	worker.Register(predictorNeverReady, func(ctx context.Context, config worker.Config, logger *slog.Logger) (worker.Predictor, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	worker.Register(predictorHang, func(ctx context.Context, config worker.Config, logger *slog.Logger) (worker.Predictor, error) {
		return predictFunc(func(ctx context.Context, request []byte) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}), nil
	})
}

type predictFunc func(ctx context.Context, request []byte) ([]byte, error)

func (f predictFunc) Predict(ctx context.Context, request []byte) ([]byte, error) {
	return f(ctx, request)
}

func (predictFunc) Close() error { return nil }

// negate decodes a CBOR integer array and answers with every element
// negated.
func negate(ctx context.Context, request []byte) ([]byte, error) {
	var values []int64
	if err := codec.Unmarshal(request, &values); err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}
	for i := range values {
		values[i] = -values[i]
	}
	return codec.Marshal(values)
}
