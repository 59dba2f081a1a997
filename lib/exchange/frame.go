// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

const (
	// headerSize is the fixed size of a frame header in bytes.
	headerSize = 24

	// frameMagic commits a data frame. The bytes spell "BIF1" when
	// read little endian from the file.
	frameMagic uint32 = 0x31464942

	// endMagic commits the end-of-stream frame ("BIE1").
	endMagic uint32 = 0x31454942

	// MaxPayloadSize is the largest payload, compressed or not, that a
	// single frame may carry.
	MaxPayloadSize = 1 << 30

	checksumSize = 8
)

var (
	// ErrCorruptFrame is returned when a committed frame has an
	// invalid header, a checksum mismatch, or a payload that does not
	// decode.
	ErrCorruptFrame = errors.New("exchange: corrupt frame")

	// ErrFrameTooLarge is returned by Write for payloads larger than
	// MaxPayloadSize.
	ErrFrameTooLarge = errors.New("exchange: payload exceeds maximum frame size")
)

// frameHeader is the decoded form of the 24-byte frame header:
//
//	[0:4]   commit word (0, frameMagic, or endMagic)
//	[4:8]   stored payload length
//	[8]     compression tag
//	[9:12]  reserved, zero
//	[12:16] uncompressed payload length
//	[16:24] truncated BLAKE3 keyed hash of the stored payload
type frameHeader struct {
	commit    uint32
	length    uint32
	tag       CompressionTag
	rawLength uint32
	checksum  [checksumSize]byte
}

// marshal writes the header into buffer, which must be at least
// headerSize bytes. The commit word is always written as zero.
func (header frameHeader) marshal(buffer []byte) {
	binary.LittleEndian.PutUint32(buffer[0:4], 0)
	binary.LittleEndian.PutUint32(buffer[4:8], header.length)
	buffer[8] = byte(header.tag)
	buffer[9], buffer[10], buffer[11] = 0, 0, 0
	binary.LittleEndian.PutUint32(buffer[12:16], header.rawLength)
	copy(buffer[16:24], header.checksum[:])
}

// parseFrameHeader decodes a header. It validates the fields that do
// not depend on the payload; an uncommitted header is returned with
// commit == 0 and no further checks.
func parseFrameHeader(buffer []byte) (frameHeader, error) {
	var header frameHeader
	header.commit = binary.LittleEndian.Uint32(buffer[0:4])
	if header.commit == 0 {
		return header, nil
	}
	header.length = binary.LittleEndian.Uint32(buffer[4:8])
	header.tag = CompressionTag(buffer[8])
	header.rawLength = binary.LittleEndian.Uint32(buffer[12:16])
	copy(header.checksum[:], buffer[16:24])

	switch header.commit {
	case frameMagic:
	case endMagic:
		if header.length != 0 || header.rawLength != 0 {
			return header, fmt.Errorf("%w: end-of-stream frame carries %d bytes", ErrCorruptFrame, header.length)
		}
		return header, nil
	default:
		return header, fmt.Errorf("%w: unknown commit word %#08x", ErrCorruptFrame, header.commit)
	}

	if buffer[9] != 0 || buffer[10] != 0 || buffer[11] != 0 {
		return header, fmt.Errorf("%w: reserved header bytes are not zero", ErrCorruptFrame)
	}
	if header.tag > CompressionZstd {
		return header, fmt.Errorf("%w: unknown compression tag %d", ErrCorruptFrame, header.tag)
	}
	if header.length > MaxPayloadSize || header.rawLength > MaxPayloadSize {
		return header, fmt.Errorf("%w: frame length %d (raw %d) exceeds maximum", ErrCorruptFrame, header.length, header.rawLength)
	}
	return header, nil
}

// frameDomainKey separates frame checksums from every other keyed
// BLAKE3 use. Exactly 32 bytes.
var frameDomainKey = [32]byte([]byte("bureau.inference.exchange.frame."))

// frameChecksum returns the truncated keyed hash of a stored payload.
func frameChecksum(stored []byte) [checksumSize]byte {
	hasher, err := blake3.NewKeyed(frameDomainKey[:])
	if err != nil {
		panic("exchange: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(stored)
	var sum [checksumSize]byte
	copy(sum[:], hasher.Sum(nil))
	return sum
}
