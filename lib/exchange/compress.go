// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies how a frame's payload is stored. Tags are
// written into the frame header and are protocol constants.
type CompressionTag uint8

const (
	// CompressionNone stores the payload as-is.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 stores an LZ4 block. Cheap to encode and decode,
	// suited to dense tensor batches.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd stores a zstd frame at the default level. Better
	// ratios for text-like payloads (JSON rows, token lists).
	CompressionZstd CompressionTag = 2
)

// String returns the configuration name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a compression name as used in bridge and
// worker configuration. The empty string means none.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (expected none, lz4, or zstd)", name)
	}
}

// errIncompressible is returned by the compressors when the encoded
// form is not smaller than the input. The frame is then stored raw.
var errIncompressible = errors.New("payload is incompressible")

// encodePayload returns the stored form of payload and the tag that
// describes it. Compression that does not shrink the payload falls
// back to CompressionNone.
func encodePayload(payload []byte, preferred CompressionTag) ([]byte, CompressionTag, error) {
	var (
		stored []byte
		err    error
	)
	switch preferred {
	case CompressionNone:
		return payload, CompressionNone, nil
	case CompressionLZ4:
		stored, err = compressLZ4(payload)
	case CompressionZstd:
		stored, err = compressZstd(payload)
	default:
		return nil, 0, fmt.Errorf("unsupported compression tag: %d", preferred)
	}
	if errors.Is(err, errIncompressible) {
		return payload, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return stored, preferred, nil
}

// decodePayload reverses encodePayload. The decoded length must match
// rawLength exactly.
func decodePayload(stored []byte, tag CompressionTag, rawLength int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != rawLength {
			return nil, fmt.Errorf("raw payload: size %d does not match expected %d", len(stored), rawLength)
		}
		return stored, nil
	case CompressionLZ4:
		return decompressLZ4(stored, rawLength)
	case CompressionZstd:
		return decompressZstd(stored, rawLength)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errIncompressible
	}
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for data it cannot shrink.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, rawLength int) ([]byte, error) {
	destination := make([]byte, rawLength)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != rawLength {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawLength)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("exchange: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("exchange: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, rawLength int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, rawLength))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != rawLength {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawLength)
	}
	return result, nil
}
