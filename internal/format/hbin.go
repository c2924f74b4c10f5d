package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
)

// HBIN describes a hive bin. Each HBIN begins with a 0x20-byte header:
//
//	Offset  Size  Field
//	0x00    4     'h' 'b' 'i' 'n'
//	0x04    4     Offset of this HBIN relative to the first one
//	0x08    4     Size of HBIN, multiple of 0x1000
//
// Only the fields needed to bound cell reads are kept.
type HBIN struct {
	FileOffset uint32
	Size       uint32
}

// NextHBIN validates the HBIN header located at absolute offset off within b
// and returns the header along with the absolute offset of the next HBIN.
func NextHBIN(b []byte, off int) (HBIN, int, error) {
	head, ok := buf.Slice(b, off, HBINHeaderSize)
	if !ok {
		return HBIN{}, 0, fmt.Errorf("hbin at %#x: %w", off, ErrTruncated)
	}
	if !bytes.Equal(head[:4], HBINSignature) {
		return HBIN{}, 0, fmt.Errorf("hbin at %#x: %w", off, ErrSignatureMismatch)
	}
	size := buf.U32LE(head[HBINSizeOffset:])
	if size == 0 || size%HBINAlignment != 0 {
		return HBIN{}, 0, fmt.Errorf("hbin at %#x: invalid size %d", off, size)
	}
	next, ok := buf.AddOverflowSafe(off, int(size))
	if !ok || next > len(b) {
		return HBIN{}, 0, fmt.Errorf("hbin at %#x: %w", off, ErrTruncated)
	}
	return HBIN{FileOffset: buf.U32LE(head[HBINFileOffsetField:]), Size: size}, next, nil
}
