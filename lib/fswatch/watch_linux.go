// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fswatch

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// WatchFile watches path for content changes. path must exist.
func WatchFile(path string) (*Watcher, error) {
	return watch(path, unix.IN_MODIFY|unix.IN_CLOSE_WRITE|unix.IN_DELETE_SELF, "")
}

// WatchRemoval watches the directory containing path and signals when
// the entry named by path is deleted or moved away.
//
// Check whether path still exists AFTER calling WatchRemoval, not
// before: a removal between the check and the watch setup would
// otherwise be missed.
func WatchRemoval(path string) (*Watcher, error) {
	return watch(filepath.Dir(path), unix.IN_DELETE|unix.IN_MOVED_FROM, filepath.Base(path))
}

// watch installs an inotify watch on target. When filename is non-empty
// only events naming that directory entry are delivered.
func watch(target string, mask uint32, filename string) (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, target, mask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch on %s: %w", target, err)
	}

	watcher := newWatcher()
	go readLoop(fd, filename, watcher)
	return watcher, nil
}

// readLoop forwards matching events until the watcher is closed or the
// descriptor fails. Uses poll(2) with a 100ms timeout so the goroutine
// notices Close without a busy loop.
func readLoop(fd int, filename string, watcher *Watcher) {
	defer unix.Close(fd)

	buffer := make([]byte, 4096)
	for {
		select {
		case <-watcher.stop:
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		if eventsMatch(buffer[:bytesRead], filename) {
			watcher.notify()
		}
	}
}

// eventsMatch reports whether the raw inotify event buffer contains an
// event for filename, or any event at all when filename is empty.
//
// Event layout (inotify(7)):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null padded
//	};
func eventsMatch(buffer []byte, filename string) bool {
	if filename == "" {
		return len(buffer) >= unix.SizeofInotifyEvent
	}
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}
		if nameLength > 0 {
			name := nullTerminated(buffer[offset+unix.SizeofInotifyEvent : offset+eventSize])
			if name == filename {
				return true
			}
		}
		offset += eventSize
	}
	return false
}

func nullTerminated(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
