// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// drainLines reads r until EOF and logs each line. Lines longer than
// maxLine are dropped with a warning but reading continues, so the
// worker never blocks on a full pipe.
func drainLines(r io.Reader, stream string, logger *slog.Logger, maxLine int) {
	reader := bufio.NewReaderSize(r, 4096)
	line := make([]byte, 0, 256)
	discarding := false

	for {
		fragment, err := reader.ReadSlice('\n')
		if len(fragment) > 0 {
			complete := fragment[len(fragment)-1] == '\n'
			if complete {
				fragment = fragment[:len(fragment)-1]
			}
			if !discarding {
				if len(line)+len(fragment) > maxLine {
					logger.Warn("discarding overlong worker output line",
						"stream", stream, "limit", maxLine)
					discarding = true
					line = line[:0]
				} else {
					line = append(line, fragment...)
				}
			}
			if complete {
				if !discarding {
					logLine(logger, stream, line)
				}
				discarding = false
				line = line[:0]
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if len(line) > 0 && !discarding {
				logLine(logger, stream, line)
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				logger.Debug("worker output stream ended", "stream", stream, "error", err)
			}
			return
		}
	}
}

func logLine(logger *slog.Logger, stream string, line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	text := string(line)
	logger.Log(context.Background(), classifyLine(text), "worker output",
		"stream", stream, "line", text)
}

// classifyLine picks a log level for a line of worker output. It
// understands bracketed level tags ("[ERROR] ...") and the level field
// of slog's text and JSON handlers. Anything else is info.
func classifyLine(line string) slog.Level {
	switch {
	case containsAny(line, "[ERROR]", "[FATAL]", "[CRITICAL]", "level=ERROR", `"level":"ERROR"`):
		return slog.LevelError
	case containsAny(line, "[WARN]", "[WARNING]", "level=WARN", `"level":"WARN"`):
		return slog.LevelWarn
	case containsAny(line, "[DEBUG]", "[TRACE]", "level=DEBUG", `"level":"DEBUG"`):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, substring := range substrings {
		if strings.Contains(s, substring) {
			return true
		}
	}
	return false
}
