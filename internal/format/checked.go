package format

import (
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
)

// CheckedReadU16 reads a little-endian uint16 at off, failing with
// ErrTruncated instead of returning zero when b is too short.
func CheckedReadU16(b []byte, off int) (uint16, error) {
	s, ok := buf.Slice(b, off, 2)
	if !ok {
		return 0, fmt.Errorf("u16 at %#x: %w", off, ErrTruncated)
	}
	return buf.U16LE(s), nil
}

// CheckedReadU32 is the uint32 variant of CheckedReadU16.
func CheckedReadU32(b []byte, off int) (uint32, error) {
	s, ok := buf.Slice(b, off, 4)
	if !ok {
		return 0, fmt.Errorf("u32 at %#x: %w", off, ErrTruncated)
	}
	return buf.U32LE(s), nil
}
