// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/inferencebridge/lib/clock"
	"github.com/bureau-foundation/inferencebridge/lib/fswatch"
)

// DefaultPollInterval is how often a blocked reader re-checks its
// queue file when no change notification arrives.
const DefaultPollInterval = 10 * time.Millisecond

var (
	// ErrWriteFinished is returned by Write after MarkWriteFinished.
	ErrWriteFinished = errors.New("exchange: write side finished")

	// ErrNoReadSide is returned by read operations on a channel opened
	// without a read path.
	ErrNoReadSide = errors.New("exchange: channel has no read side")

	// ErrNoWriteSide is returned by write operations on a channel
	// opened without a write path.
	ErrNoWriteSide = errors.New("exchange: channel has no write side")

	// ErrClosed is returned by any operation after Close.
	ErrClosed = errors.New("exchange: channel closed")
)

// Options configures a Channel.
type Options struct {
	// Compression is applied to outgoing payloads when it makes them
	// smaller. Readers decode any tag regardless of this setting.
	Compression CompressionTag

	// PollInterval bounds how long Read sleeps between checks when no
	// change notification arrives. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// Clock drives the poll ticker. Nil means the real clock.
	Clock clock.Clock
}

// Channel is one endpoint of a file-backed exchange. It reads frames
// from one queue file and appends frames to another.
//
// The read side and the write side are guarded independently, so one
// goroutine may block in Read while another writes. Each side must
// have a single user at a time in the sense of the queue protocol:
// one writer per file and one reader per file across both processes.
type Channel struct {
	options Options

	readMu     sync.Mutex
	readFile   *os.File
	readPath   string
	readOffset int64
	readDone   bool
	watcher    *fswatch.Watcher

	writeMu       sync.Mutex
	writeFile     *os.File
	writePath     string
	writeOffset   int64
	writeFinished bool

	closeOnce sync.Once
	closed    chan struct{}
}

// Open binds a channel to existing queue files. readPath is the file
// this side consumes and writePath the file it produces. Either may be
// empty for a one-directional channel. On error everything opened so
// far is released.
func Open(readPath, writePath string, options Options) (*Channel, error) {
	if readPath == "" && writePath == "" {
		return nil, errors.New("exchange: at least one of read path and write path is required")
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	options.Clock = clock.OrReal(options.Clock)

	channel := &Channel{
		options:   options,
		readPath:  readPath,
		writePath: writePath,
		closed:    make(chan struct{}),
	}

	if readPath != "" {
		file, err := os.OpenFile(readPath, os.O_RDONLY, 0)
		if err != nil {
			channel.Close()
			return nil, fmt.Errorf("opening read queue %s: %w", readPath, err)
		}
		channel.readFile = file

		// Polling still covers platforms without a watcher.
		watcher, err := fswatch.WatchFile(readPath)
		if err == nil {
			channel.watcher = watcher
		} else if !errors.Is(err, errors.ErrUnsupported) {
			channel.Close()
			return nil, fmt.Errorf("watching read queue %s: %w", readPath, err)
		}
	}

	if writePath != "" {
		file, err := os.OpenFile(writePath, os.O_WRONLY, 0)
		if err != nil {
			channel.Close()
			return nil, fmt.Errorf("opening write queue %s: %w", writePath, err)
		}
		channel.writeFile = file
		info, err := file.Stat()
		if err != nil {
			channel.Close()
			return nil, fmt.Errorf("stat write queue %s: %w", writePath, err)
		}
		channel.writeOffset = info.Size()
	}

	return channel, nil
}

// Write appends one frame carrying payload. The frame becomes visible
// to the reader atomically when its commit word lands.
func (c *Channel) Write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	stored, tag, err := encodePayload(payload, c.options.Compression)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	frame := make([]byte, headerSize+len(stored))
	frameHeader{
		length:    uint32(len(stored)),
		tag:       tag,
		rawLength: uint32(len(payload)),
		checksum:  frameChecksum(stored),
	}.marshal(frame)
	copy(frame[headerSize:], stored)

	if err := c.appendFrame(frame, frameMagic); err != nil {
		return fmt.Errorf("writing frame to %s: %w", c.writePath, err)
	}
	return nil
}

// MarkWriteFinished appends the end-of-stream frame. Subsequent writes
// fail with ErrWriteFinished. Calling it again is a no-op.
func (c *Channel) MarkWriteFinished() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeFinished {
		return nil
	}
	if err := c.checkWritable(); err != nil {
		return err
	}

	frame := make([]byte, headerSize)
	frameHeader{}.marshal(frame)
	if err := c.appendFrame(frame, endMagic); err != nil {
		return fmt.Errorf("writing end-of-stream to %s: %w", c.writePath, err)
	}
	c.writeFinished = true
	return nil
}

// checkWritable reports why the write side cannot accept a frame.
// Caller holds writeMu.
func (c *Channel) checkWritable() error {
	if c.isClosed() {
		return ErrClosed
	}
	if c.writeFile == nil {
		return ErrNoWriteSide
	}
	if c.writeFinished {
		return ErrWriteFinished
	}
	return nil
}

// appendFrame writes frame (whose commit word is zero) at the end of
// the write queue and then commits it. Caller holds writeMu.
func (c *Channel) appendFrame(frame []byte, commit uint32) error {
	if _, err := c.writeFile.WriteAt(frame, c.writeOffset); err != nil {
		return err
	}
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], commit)
	if _, err := c.writeFile.WriteAt(word[:], c.writeOffset); err != nil {
		return err
	}
	c.writeOffset += int64(len(frame))
	return nil
}

// TryRead returns the next committed frame without blocking. ok is
// false with a nil error when no complete frame is available yet.
// After the end-of-stream frame has been consumed it returns io.EOF.
func (c *Channel) TryRead() (payload []byte, ok bool, err error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.isClosed() {
		return nil, false, ErrClosed
	}
	if c.readFile == nil {
		return nil, false, ErrNoReadSide
	}
	if c.readDone {
		return nil, false, io.EOF
	}

	var headerBuffer [headerSize]byte
	n, err := c.readFile.ReadAt(headerBuffer[:], c.readOffset)
	if n < headerSize {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading frame header from %s: %w", c.readPath, err)
	}

	header, err := parseFrameHeader(headerBuffer[:])
	if err != nil {
		return nil, false, fmt.Errorf("frame at offset %d of %s: %w", c.readOffset, c.readPath, err)
	}
	switch header.commit {
	case 0:
		return nil, false, nil
	case endMagic:
		c.readDone = true
		c.readOffset += headerSize
		return nil, false, io.EOF
	}

	stored := make([]byte, header.length)
	n, err = c.readFile.ReadAt(stored, c.readOffset+headerSize)
	if n < len(stored) {
		if err == nil || errors.Is(err, io.EOF) {
			// The commit word is written last, so a committed frame
			// with missing bytes means the file was truncated.
			return nil, false, fmt.Errorf("%w: frame at offset %d of %s is truncated (%d of %d payload bytes)",
				ErrCorruptFrame, c.readOffset, c.readPath, n, len(stored))
		}
		return nil, false, fmt.Errorf("reading frame payload from %s: %w", c.readPath, err)
	}

	if frameChecksum(stored) != header.checksum {
		return nil, false, fmt.Errorf("%w: checksum mismatch at offset %d of %s", ErrCorruptFrame, c.readOffset, c.readPath)
	}
	payload, err = decodePayload(stored, header.tag, int(header.rawLength))
	if err != nil {
		return nil, false, fmt.Errorf("%w: offset %d of %s: %v", ErrCorruptFrame, c.readOffset, c.readPath, err)
	}

	c.readOffset += headerSize + int64(header.length)
	if payload == nil {
		payload = []byte{}
	}
	return payload, true, nil
}

// Read blocks until the next frame is available. It returns io.EOF at
// end-of-stream and ctx.Err() when ctx is done first.
func (c *Channel) Read(ctx context.Context) ([]byte, error) {
	ticker := c.options.Clock.NewTicker(c.options.PollInterval)
	defer ticker.Stop()

	for {
		payload, ok, err := c.TryRead()
		if err != nil {
			return nil, err
		}
		if ok {
			return payload, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.closed:
			return nil, ErrClosed
		case <-c.Changed():
		case <-ticker.C:
		}
	}
}

// Changed returns a channel that receives a value when the read queue
// may have new data. Notifications coalesce and may be spurious. The
// returned channel is nil (never ready) when no watcher is available,
// so callers must also poll.
func (c *Channel) Changed() <-chan struct{} {
	if c == nil {
		return nil
	}
	return c.watcher.Events()
}

// PollInterval returns the interval callers composing their own wait
// should poll at.
func (c *Channel) PollInterval() time.Duration {
	return c.options.PollInterval
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close releases the queue descriptors and the watcher. It does not
// write end-of-stream and does not remove the files. Safe to call on
// a nil or partially opened channel and more than once.
func (c *Channel) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.watcher.Close()

		c.readMu.Lock()
		if c.readFile != nil {
			if err := c.readFile.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read queue: %w", err))
			}
			c.readFile = nil
		}
		c.readMu.Unlock()

		c.writeMu.Lock()
		if c.writeFile != nil {
			if err := c.writeFile.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write queue: %w", err))
			}
			c.writeFile = nil
		}
		c.writeMu.Unlock()
	})
	return errors.Join(errs...)
}
