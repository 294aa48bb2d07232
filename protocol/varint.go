// Package protocol implements the wire format of the initial protocol
// phases: the VarInt codec, the phase-gated frame decoder and the mirrored
// encoder. Everything here is pure byte manipulation; no I/O.
package protocol

import (
	"encoding/binary"
	"errors"
)

// ErrIncomplete reports that the buffer ends before a full VarInt, string or
// frame. It is the steady-state condition of a streaming transport, not a
// failure: the caller keeps the buffer and retries once more bytes arrive.
var ErrIncomplete = errors.New("incomplete data")

// maxVarIntBytes bounds a VarInt to the 32-bit range.
const maxVarIntBytes = 5

var (
	errVarIntTooLong  = errors.New("varint exceeds 5 bytes")
	errNegativeLength = errors.New("negative length prefix")
)

// ReadVarInt decodes a VarInt from the start of buf: 7 data bits per byte,
// LSB group first, MSB of each byte is the continuation bit. Returns the
// value and the number of bytes consumed. ErrIncomplete means the buffer
// ended with the continuation bit still set.
func ReadVarInt(buf []byte) (int32, int, error) {
	var v uint32
	for i := 0; i < maxVarIntBytes; i++ {
		if i >= len(buf) {
			return 0, 0, ErrIncomplete
		}
		b := buf[i]
		v |= uint32(b&0x7F) << (7 * uint(i))
		if b&0x80 == 0 {
			return int32(v), i + 1, nil
		}
	}
	return 0, 0, errVarIntTooLong
}

// AppendVarInt appends the minimal VarInt encoding of v to dst.
func AppendVarInt(dst []byte, v int32) []byte {
	u := uint32(v)
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if u == 0 {
			return dst
		}
	}
}

// VarIntLen returns the encoded size of v in bytes (1..5).
func VarIntLen(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// ReadString decodes a VarInt byte-length prefix followed by that many bytes
// of UTF-8. Returns the string and total bytes consumed. A short buffer
// yields ErrIncomplete; a negative declared length is malformed.
func ReadString(buf []byte) (string, int, error) {
	size, n, err := ReadVarInt(buf)
	if err != nil {
		return "", 0, err
	}
	if size < 0 {
		return "", 0, errNegativeLength
	}
	if len(buf)-n < int(size) {
		return "", 0, ErrIncomplete
	}
	return string(buf[n : n+int(size)]), n + int(size), nil
}

// AppendString appends the VarInt length prefix and the UTF-8 bytes of s.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVarInt(dst, int32(len(s)))
	return append(dst, s...)
}

// readUint16 reads a big-endian uint16.
func readUint16(buf []byte) (uint16, int, error) {
	if len(buf) < 2 {
		return 0, 0, ErrIncomplete
	}
	return binary.BigEndian.Uint16(buf), 2, nil
}

// readInt64 reads a big-endian int64.
func readInt64(buf []byte) (int64, int, error) {
	if len(buf) < 8 {
		return 0, 0, ErrIncomplete
	}
	return int64(binary.BigEndian.Uint64(buf)), 8, nil
}

func appendUint16(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

func appendInt64(dst []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(dst, uint64(v))
}
