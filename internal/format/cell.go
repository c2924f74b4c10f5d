package format

import (
	"errors"
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
)

// Cell represents a single allocation (free or in-use) within an HBIN.
//
// Cell header layout (little-endian):
//
//	Offset  Size  Description
//	0x00    4     Signed size. Negative => allocated, positive => free.
//	              The absolute value includes the 4-byte header.
//	0x04    ...   Payload. First two bytes form the record tag when allocated.
type Cell struct {
	Size int    // Total size including header
	Free bool   // True when the cell is marked as free
	Data []byte // Payload bytes (alias of underlying buffer)
}

// Tag returns the two-byte record signature, or "" for short payloads.
func (c Cell) Tag() string {
	if len(c.Data) < SignatureSize {
		return ""
	}
	return string(c.Data[:SignatureSize])
}

// ParseCell decodes the cell starting at b[0]. The declared size must fit
// within b; callers pass a slice bounded by the enclosing HBIN.
func ParseCell(b []byte) (Cell, error) {
	if len(b) < CellHeaderSize {
		return Cell{}, fmt.Errorf("cell: %w", ErrTruncated)
	}
	raw := buf.I32LE(b)
	if raw == 0 {
		return Cell{}, errors.New("cell: zero length")
	}
	allocated := raw < 0
	size := int(raw)
	if allocated {
		size = -size
	}
	if size < CellHeaderSize {
		return Cell{}, fmt.Errorf("cell: declared size too small (%d)", size)
	}
	if size > len(b) {
		return Cell{}, fmt.Errorf("cell: %w (declared %d, have %d)", ErrTruncated, size, len(b))
	}
	return Cell{
		Size: size,
		Free: !allocated,
		Data: b[CellHeaderSize:size],
	}, nil
}
