// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// LevelEnv names the environment variable carrying the minimum log
// level ("debug", "info", "warn", "error") into a worker process.
const LevelEnv = "BUREAU_INFERENCE_LOG_LEVEL"

// New returns a logger writing to stderr at the given level. The
// handler is text on a terminal and JSON otherwise.
//
// Callers scope the logger with component context via With():
//
//	logger := logging.New(slog.LevelInfo).With("session", sessionID)
func New(level slog.Leveler) *slog.Logger {
	return slog.New(NewHandler(os.Stderr, level, term.IsTerminal(int(os.Stderr.Fd()))))
}

// NewHandler returns a text handler when terminal is true and a JSON
// handler otherwise.
func NewHandler(w io.Writer, level slog.Leveler, terminal bool) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.NewTextHandler(w, options)
	}
	return slog.NewJSONHandler(w, options)
}

// ParseLevel parses a level name. The empty string is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing log level %q: %w", name, err)
	}
	return level, nil
}

// LevelFromEnv returns the level named by LevelEnv, or info when it is
// unset or invalid.
func LevelFromEnv() slog.Level {
	level, err := ParseLevel(os.Getenv(LevelEnv))
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// LevelName returns the LevelEnv spelling of level.
func LevelName(level slog.Level) string {
	return strings.ToLower(level.String())
}
