// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/bureau-foundation/inferencebridge/lib/codec"
	"github.com/bureau-foundation/inferencebridge/lib/exchange"
)

// Config is the immutable configuration handed to a worker at spawn
// time. It crosses the process boundary as one command-line argument
// (see Encode).
type Config struct {
	// ModelPath locates the model the predictor loads.
	ModelPath string `cbor:"model_path,omitempty" yaml:"model_path"`

	// IntraOpNumThreads bounds parallelism inside one operator. The
	// host also exports it to external workers as OMP_NUM_THREADS.
	// Zero leaves the runtime default.
	IntraOpNumThreads int `cbor:"intra_op_num_threads,omitempty" yaml:"intra_op_num_threads"`

	// InterOpNumThreads bounds parallelism across operators.
	InterOpNumThreads int `cbor:"inter_op_num_threads,omitempty" yaml:"inter_op_num_threads"`

	// ThreadMode runs the worker in-process instead of as a child
	// process. Intended for debugging.
	ThreadMode bool `cbor:"thread_mode,omitempty" yaml:"thread_mode"`

	// Compression is applied by the worker to its responses: "none",
	// "lz4", or "zstd".
	Compression string `cbor:"compression,omitempty" yaml:"compression"`

	// Properties carries model-specific settings.
	Properties map[string]string `cbor:"properties,omitempty" yaml:"properties"`
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.IntraOpNumThreads < 0 {
		errs = append(errs, fmt.Errorf("intra_op_num_threads must not be negative, got %d", c.IntraOpNumThreads))
	}
	if c.InterOpNumThreads < 0 {
		errs = append(errs, fmt.Errorf("inter_op_num_threads must not be negative, got %d", c.InterOpNumThreads))
	}
	if _, err := exchange.ParseCompressionTag(c.Compression); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Encode returns the text form of the configuration: deterministic
// CBOR, base64url without padding. The result is safe as a single
// command-line argument.
func (c Config) Encode() (string, error) {
	data, err := codec.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding worker config: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeConfig parses the text form produced by Encode.
func DecodeConfig(text string) (Config, error) {
	data, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		return Config{}, fmt.Errorf("decoding worker config text: %w", err)
	}
	var config Config
	if err := codec.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("decoding worker config: %w", err)
	}
	return config, nil
}
