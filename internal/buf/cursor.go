package buf

import (
	"errors"
	"fmt"
)

// ErrShort is returned by Cursor reads that run past the end of the buffer.
var ErrShort = errors.New("buf: read past end of buffer")

// Cursor is a forward reader over a byte slice. Positions are absolute
// offsets into the slice so that structures referencing each other by offset
// (event log chunks, for example) can jump around with Seek.
//
// Every read is bounds checked; a failed read leaves the position unchanged.
type Cursor struct {
	b   []byte
	pos int
}

// NewCursor returns a cursor over b positioned at off.
func NewCursor(b []byte, off int) *Cursor {
	return &Cursor{b: b, pos: off}
}

// Pos returns the current absolute offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the size of the underlying buffer.
func (c *Cursor) Len() int { return len(c.b) }

// Seek moves the cursor to off.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.b) {
		return fmt.Errorf("seek %d: %w", off, ErrShort)
	}
	c.pos = off
	return nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	end, ok := AddOverflowSafe(c.pos, n)
	if !ok || n < 0 || end > len(c.b) {
		return fmt.Errorf("skip %d at %d: %w", n, c.pos, ErrShort)
	}
	c.pos = end
	return nil
}

// Bytes consumes n bytes and returns them without copying.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	out, ok := Slice(c.b, c.pos, n)
	if !ok {
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, c.pos, ErrShort)
	}
	c.pos += n
	return out, nil
}

// Peek returns the next byte without consuming it.
func (c *Cursor) Peek() (byte, error) {
	if c.pos >= len(c.b) {
		return 0, fmt.Errorf("peek at %d: %w", c.pos, ErrShort)
	}
	return c.b[c.pos], nil
}

// U8 consumes one byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 consumes a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return U16LE(b), nil
}

// U32 consumes a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return U32LE(b), nil
}

// U64 consumes a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return U64LE(b), nil
}
