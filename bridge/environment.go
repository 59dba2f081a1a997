// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/bureau-foundation/inferencebridge/lib/logging"
)

// LibraryPathEnv carries the configured library path to the worker
// unchanged, for predictors that load a runtime explicitly.
const LibraryPathEnv = "BUREAU_INFERENCE_LIBRARY_PATH"

// libraryPathVariable is the dynamic loader's search path variable.
func libraryPathVariable() string {
	if runtime.GOOS == "darwin" {
		return "DYLD_LIBRARY_PATH"
	}
	return "LD_LIBRARY_PATH"
}

// workerLogLevel returns the lowest level logger keeps, so an external
// worker emits no records the host would drop.
func workerLogLevel(logger *slog.Logger) slog.Level {
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if logger.Enabled(context.Background(), level) {
			return level
		}
	}
	return slog.LevelError
}

// workerEnvironment derives an external worker's environment from base
// (normally os.Environ()). Variables the bridge sets replace any
// inherited value, except the loader path, which is prefixed.
func workerEnvironment(base []string, config Config, logLevel string) []string {
	overrides := map[string]string{}
	if config.LibraryPath != "" {
		loaderVariable := libraryPathVariable()
		value := config.LibraryPath
		if inherited := lookupEnv(base, loaderVariable); inherited != "" {
			value += string(filepath.ListSeparator) + inherited
		}
		overrides[loaderVariable] = value
		overrides[LibraryPathEnv] = config.LibraryPath
	}
	if config.Worker.IntraOpNumThreads > 0 {
		overrides["OMP_NUM_THREADS"] = strconv.Itoa(config.Worker.IntraOpNumThreads)
	}
	if logLevel != "" && lookupEnv(base, logging.LevelEnv) == "" {
		overrides[logging.LevelEnv] = logLevel
	}

	environment := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		name, _, _ := strings.Cut(entry, "=")
		if _, replaced := overrides[name]; replaced {
			continue
		}
		environment = append(environment, entry)
	}
	for name, value := range overrides {
		environment = append(environment, name+"="+value)
	}
	return environment
}

// lookupEnv returns the last value of name in environment.
func lookupEnv(environment []string, name string) string {
	value := ""
	for _, entry := range environment {
		if key, entryValue, ok := strings.Cut(entry, "="); ok && key == name {
			value = entryValue
		}
	}
	return value
}

// resolveWorkerBinary locates the worker executable. A bare name is
// looked up on PATH and then next to the host executable, so an
// installed host finds the worker it shipped with.
func resolveWorkerBinary(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err == nil {
		return filepath.Abs(path)
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("worker binary %s: %w", name, err)
	}

	executable, executableErr := os.Executable()
	if executableErr == nil {
		sibling := filepath.Join(filepath.Dir(executable), name)
		if info, statErr := os.Stat(sibling); statErr == nil && info.Mode().IsRegular() && info.Mode()&0111 != 0 {
			return sibling, nil
		}
	}
	return "", fmt.Errorf("worker binary %q not found on PATH or next to the host executable: %w",
		name, errors.Join(err, executableErr))
}
