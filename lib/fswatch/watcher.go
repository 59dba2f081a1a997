// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fswatch

import "sync"

// Watcher delivers coalesced change notifications until closed.
type Watcher struct {
	events chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func newWatcher() *Watcher {
	return &Watcher{
		events: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// Events returns the notification channel. Nil for a nil watcher.
func (w *Watcher) Events() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.events
}

// Close stops the watcher and releases its resources. Safe to call
// multiple times and on a nil watcher.
func (w *Watcher) Close() {
	if w == nil {
		return
	}
	w.once.Do(func() { close(w.stop) })
}

// notify records a change without blocking.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
