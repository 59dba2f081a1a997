// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/inferencebridge/lib/testutil"
)

// queuePaths creates an empty input and output queue in a fresh
// directory.
func queuePaths(t *testing.T) (input, output string) {
	t.Helper()
	directory := t.TempDir()
	input = filepath.Join(directory, "queue.input")
	output = filepath.Join(directory, "queue.output")
	for _, path := range []string{input, output} {
		if err := os.WriteFile(path, nil, 0600); err != nil {
			t.Fatalf("creating %s: %v", path, err)
		}
	}
	return input, output
}

// openPair opens both endpoints: the host writes input and reads
// output, the worker does the reverse.
func openPair(t *testing.T, options Options) (host, worker *Channel) {
	t.Helper()
	input, output := queuePaths(t)
	host, err := Open(output, input, options)
	if err != nil {
		t.Fatalf("Open host: %v", err)
	}
	t.Cleanup(func() { host.Close() })
	worker, err = Open(input, output, options)
	if err != nil {
		t.Fatalf("Open worker: %v", err)
	}
	t.Cleanup(func() { worker.Close() })
	return host, worker
}

func TestChannelPreservesOrderAndContent(t *testing.T) {
	for _, compression := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			host, worker := openPair(t, Options{Compression: compression})

			messages := [][]byte{
				{},
				{0x00},
				[]byte("second"),
				bytes.Repeat([]byte("0.125,0.25,0.5;"), 10000),
			}
			for i, message := range messages {
				if err := host.Write(message); err != nil {
					t.Fatalf("Write %d: %v", i, err)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for i, want := range messages {
				got, err := worker.Read(ctx)
				if err != nil {
					t.Fatalf("Read %d: %v", i, err)
				}
				if !bytes.Equal(got, want) {
					t.Fatalf("message %d: got %d bytes, want %d", i, len(got), len(want))
				}
			}

			if _, ok, err := worker.TryRead(); ok || err != nil {
				t.Errorf("TryRead after draining = ok %v, err %v; want no frame", ok, err)
			}
		})
	}
}

func TestChannelBothDirections(t *testing.T) {
	host, worker := openPair(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := host.Write([]byte("request")); err != nil {
		t.Fatalf("host Write: %v", err)
	}
	request, err := worker.Read(ctx)
	if err != nil {
		t.Fatalf("worker Read: %v", err)
	}
	if err := worker.Write(append([]byte("reply to "), request...)); err != nil {
		t.Fatalf("worker Write: %v", err)
	}
	reply, err := host.Read(ctx)
	if err != nil {
		t.Fatalf("host Read: %v", err)
	}
	if string(reply) != "reply to request" {
		t.Errorf("reply = %q", reply)
	}
}

func TestTryReadIgnoresUncommittedFrame(t *testing.T) {
	input, _ := queuePaths(t)
	reader, err := Open(input, "", Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	payload := []byte("half written")
	frame := make([]byte, headerSize+len(payload))
	frameHeader{
		length:    uint32(len(payload)),
		rawLength: uint32(len(payload)),
		checksum:  frameChecksum(payload),
	}.marshal(frame)
	copy(frame[headerSize:], payload)

	file, err := os.OpenFile(input, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("opening queue: %v", err)
	}
	defer file.Close()

	// Only the header so far: not visible even if committed later.
	if _, err := file.WriteAt(frame[:headerSize], 0); err != nil {
		t.Fatalf("WriteAt header: %v", err)
	}
	if _, ok, err := reader.TryRead(); ok || err != nil {
		t.Fatalf("TryRead on header-only frame = ok %v, err %v", ok, err)
	}

	// Whole frame, commit word still zero.
	if _, err := file.WriteAt(frame, 0); err != nil {
		t.Fatalf("WriteAt frame: %v", err)
	}
	if _, ok, err := reader.TryRead(); ok || err != nil {
		t.Fatalf("TryRead on uncommitted frame = ok %v, err %v", ok, err)
	}

	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], frameMagic)
	if _, err := file.WriteAt(word[:], 0); err != nil {
		t.Fatalf("WriteAt commit: %v", err)
	}
	got, ok, err := reader.TryRead()
	if err != nil || !ok {
		t.Fatalf("TryRead after commit = ok %v, err %v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestTryReadDetectsCorruption(t *testing.T) {
	t.Run("checksum", func(t *testing.T) {
		host, worker := openPair(t, Options{})
		if err := host.Write([]byte("intact payload")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		flipByte(t, host.writePath, headerSize+3)
		if _, _, err := worker.TryRead(); !errors.Is(err, ErrCorruptFrame) {
			t.Errorf("TryRead error = %v, want ErrCorruptFrame", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		host, worker := openPair(t, Options{})
		if err := host.Write([]byte("this payload will be cut short")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := os.Truncate(host.writePath, headerSize+4); err != nil {
			t.Fatalf("Truncate: %v", err)
		}
		if _, _, err := worker.TryRead(); !errors.Is(err, ErrCorruptFrame) {
			t.Errorf("TryRead error = %v, want ErrCorruptFrame", err)
		}
	})
}

func flipByte(t *testing.T, path string, offset int64) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer file.Close()
	var b [1]byte
	if _, err := file.ReadAt(b[:], offset); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	b[0] ^= 0xff
	if _, err := file.WriteAt(b[:], offset); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
}

func TestMarkWriteFinished(t *testing.T) {
	host, worker := openPair(t, Options{})

	if err := host.Write([]byte("last")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := host.MarkWriteFinished(); err != nil {
		t.Fatalf("MarkWriteFinished: %v", err)
	}
	if err := host.MarkWriteFinished(); err != nil {
		t.Errorf("second MarkWriteFinished: %v", err)
	}
	if err := host.Write([]byte("too late")); !errors.Is(err, ErrWriteFinished) {
		t.Errorf("Write after finish = %v, want ErrWriteFinished", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := worker.Read(ctx)
	if err != nil || string(got) != "last" {
		t.Fatalf("Read = %q, %v; want \"last\"", got, err)
	}
	if _, err := worker.Read(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Read at end of stream = %v, want io.EOF", err)
	}
	if _, _, err := worker.TryRead(); !errors.Is(err, io.EOF) {
		t.Errorf("TryRead after end of stream = %v, want io.EOF", err)
	}
}

func TestReadWaitsForWriter(t *testing.T) {
	host, worker := openPair(t, Options{PollInterval: time.Second})

	type result struct {
		payload []byte
		err     error
	}
	results := make(chan result, 1)
	go func() {
		payload, err := worker.Read(context.Background())
		results <- result{payload, err}
	}()

	payload := fmt.Sprintf("frame-%d", os.Getpid())
	if err := host.Write([]byte(payload)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := testutil.RequireReceive(t, results, 5*time.Second, "waiting for blocked Read")
	if got.err != nil || string(got.payload) != payload {
		t.Fatalf("Read = %q, %v; want %q", got.payload, got.err, payload)
	}
}

func TestReadHonorsContext(t *testing.T) {
	_, worker := openPair(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := worker.Read(ctx)
		errs <- err
	}()
	cancel()
	err := testutil.RequireReceive(t, errs, 5*time.Second, "waiting for cancelled Read")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read error = %v, want context.Canceled", err)
	}
}

func TestOneDirectionalChannel(t *testing.T) {
	input, _ := queuePaths(t)
	writer, err := Open("", input, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer writer.Close()

	if _, _, err := writer.TryRead(); !errors.Is(err, ErrNoReadSide) {
		t.Errorf("TryRead on write-only channel = %v, want ErrNoReadSide", err)
	}
	if writer.Changed() != nil {
		t.Error("write-only channel returned a change notifier")
	}

	reader, err := Open(input, "", Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()
	if err := reader.Write([]byte("x")); !errors.Is(err, ErrNoWriteSide) {
		t.Errorf("Write on read-only channel = %v, want ErrNoWriteSide", err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open("", "", Options{}); err == nil {
		t.Error("Open with no paths should fail")
	}
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := Open(missing, "", Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open missing read queue = %v, want ErrNotExist", err)
	}
	input, _ := queuePaths(t)
	if _, err := Open(input, missing, Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open missing write queue = %v, want ErrNotExist", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	var nilChannel *Channel
	if err := nilChannel.Close(); err != nil {
		t.Errorf("Close on nil channel: %v", err)
	}

	host, _ := openPair(t, Options{})
	if err := host.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := host.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := host.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
	if _, _, err := host.TryRead(); !errors.Is(err, ErrClosed) {
		t.Errorf("TryRead after Close = %v, want ErrClosed", err)
	}
	if _, err := host.Read(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
}

func TestPollIntervalDefault(t *testing.T) {
	host, _ := openPair(t, Options{})
	if got := host.PollInterval(); got != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default %v", got, DefaultPollInterval)
	}
	configured, _ := openPair(t, Options{PollInterval: 5 * time.Millisecond})
	if got := configured.PollInterval(); got != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", got)
	}
}
