// Package codec implements the fixed-width little-endian binary encoding
// helpers used for Orbit's on-disk structures (Star Map header/tables,
// Universe location records). Rather than a reflection-based generic
// encoder, codec is hand-written against the fixed byte layouts those
// structures use, which are simpler and faster to encode directly than
// through a generic reflected encoder.
package codec

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortBuffer is returned when decoding from a buffer too small to hold
// the requested field.
var ErrShortBuffer = errors.New("codec: buffer too short")

// PutUint64 appends the little-endian encoding of v to buf.
func PutUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// Uint64 decodes a little-endian uint64 from the first 8 bytes of buf.
func Uint64(buf []byte) (uint64, error) {
	if len(buf) < 8 {
		return 0, ErrShortBuffer
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// PutUint32 appends the little-endian encoding of v to buf.
func PutUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// Uint32 decodes a little-endian uint32 from the first 4 bytes of buf.
func Uint32(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, ErrShortBuffer
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// PutUint16 appends the little-endian encoding of v to buf.
func PutUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// Uint16 decodes a little-endian uint16 from the first 2 bytes of buf.
func Uint16(buf []byte) (uint16, error) {
	if len(buf) < 2 {
		return 0, ErrShortBuffer
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// WritePrefixed writes a 4-byte little-endian length prefix followed by
// data.
func WritePrefixed(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadPrefixed reads a 4-byte length-prefixed blob, rejecting prefixes
// larger than maxLen.
func ReadPrefixed(r io.Reader, maxLen uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxLen {
		return nil, errors.New("codec: prefixed length exceeds maximum")
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
