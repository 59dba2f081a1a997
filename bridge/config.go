// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/inferencebridge/lib/exchange"
	"github.com/bureau-foundation/inferencebridge/lib/worker"
)

const (
	// DefaultWorkerBinary is looked up on PATH, then next to the host
	// executable, when worker_binary is not configured.
	DefaultWorkerBinary = "bureau-inference-worker"

	// DefaultHandshakeTimeout bounds Open's wait for worker readiness.
	DefaultHandshakeTimeout = 2 * time.Minute

	// DefaultPollInterval is the fallback poll for readiness and for
	// responses when no change notification arrives.
	DefaultPollInterval = 50 * time.Millisecond
)

// Config is the bridge configuration. Field tags give the map keys
// accepted by ConfigFromMap.
type Config struct {
	// LibraryPath is prepended to the worker's dynamic library search
	// path (LD_LIBRARY_PATH, or DYLD_LIBRARY_PATH on macOS).
	LibraryPath string `yaml:"library_path"`

	// WorkerBinary is the external worker executable: a path, or a name
	// resolved on PATH.
	WorkerBinary string `yaml:"worker_binary"`

	// Predictor names the predictor the worker runs.
	Predictor string `yaml:"predictor"`

	// HandshakeTimeout bounds how long Open waits for readiness.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// PollInterval is the fallback poll for readiness and responses.
	PollInterval time.Duration `yaml:"poll_interval"`

	// TempDir is where session directories are created. Empty means
	// os.TempDir().
	TempDir string `yaml:"temp_dir"`

	// Compression applies to requests: "none", "lz4", or "zstd". It
	// also becomes the worker's response compression unless the worker
	// config sets its own.
	Compression string `yaml:"compression"`

	// Worker is handed to the worker at spawn time.
	Worker worker.Config `yaml:"worker"`
}

// ConfigFromMap decodes a configuration map (for example the result of
// config.LoadProfile), applies defaults, and validates the result.
// Durations are Go duration strings ("30s", "2m"). Unknown keys are
// errors.
func ConfigFromMap(values map[string]any) (Config, error) {
	data, err := yaml.Marshal(values)
	if err != nil {
		return Config{}, fmt.Errorf("encoding config map: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var config Config
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding bridge config: %w", err)
	}
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// WithDefaults returns c with every unset field given its default.
func (c Config) WithDefaults() Config {
	if c.WorkerBinary == "" {
		c.WorkerBinary = DefaultWorkerBinary
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.Compression == "" {
		c.Compression = exchange.CompressionNone.String()
	}
	return c
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if c.Predictor == "" {
		errs = append(errs, errors.New("predictor is required"))
	}
	if c.HandshakeTimeout < 0 {
		errs = append(errs, fmt.Errorf("handshake_timeout must not be negative, got %v", c.HandshakeTimeout))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll_interval must not be negative, got %v", c.PollInterval))
	}
	if _, err := exchange.ParseCompressionTag(c.Compression); err != nil {
		errs = append(errs, fmt.Errorf("compression: %w", err))
	}
	if err := c.Worker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("worker: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid bridge config: %w", errors.Join(errs...))
	}
	return nil
}
