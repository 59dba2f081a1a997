// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"log/slog"
)

// EchoPredictor is the name of the built-in predictor that returns
// each request unchanged.
const EchoPredictor = "echo"

func init() {
	Register(EchoPredictor, func(ctx context.Context, config Config, logger *slog.Logger) (Predictor, error) {
		logger.Debug("echo predictor ready",
			"intra_op_num_threads", config.IntraOpNumThreads,
			"inter_op_num_threads", config.InterOpNumThreads,
		)
		return echo{}, nil
	})
}

type echo struct{}

func (echo) Predict(ctx context.Context, request []byte) ([]byte, error) {
	return request, nil
}

func (echo) Close() error { return nil }
