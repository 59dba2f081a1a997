// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package fswatch

import "errors"

// WatchFile is unsupported off Linux; callers fall back to polling.
func WatchFile(path string) (*Watcher, error) {
	return nil, errors.ErrUnsupported
}

// WatchRemoval is unsupported off Linux; callers fall back to polling.
func WatchRemoval(path string) (*Watcher, error) {
	return nil, errors.ErrUnsupported
}
