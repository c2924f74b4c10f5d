package buf

import (
	"errors"
	"testing"
)

func TestCursorSequentialReads(t *testing.T) {
	data := []byte{0x0f, 0x01, 0x00, 0x78, 0x56, 0x34, 0x12, 0xAA}
	c := NewCursor(data, 0)

	tok, err := c.U8()
	if err != nil || tok != 0x0f {
		t.Fatalf("U8 = 0x%x, %v", tok, err)
	}
	v16, err := c.U16()
	if err != nil || v16 != 0x0001 {
		t.Fatalf("U16 = 0x%x, %v", v16, err)
	}
	v32, err := c.U32()
	if err != nil || v32 != 0x12345678 {
		t.Fatalf("U32 = 0x%x, %v", v32, err)
	}
	if c.Pos() != 7 {
		t.Fatalf("Pos = %d, want 7", c.Pos())
	}
	if b, err := c.Peek(); err != nil || b != 0xAA {
		t.Fatalf("Peek = 0x%x, %v", b, err)
	}
}

func TestCursorShortReadKeepsPosition(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3}, 1)
	if _, err := c.U32(); !errors.Is(err, ErrShort) {
		t.Fatalf("U32 past end: err = %v, want ErrShort", err)
	}
	if c.Pos() != 1 {
		t.Fatalf("failed read moved cursor to %d", c.Pos())
	}
	if err := c.Skip(-1); !errors.Is(err, ErrShort) {
		t.Fatalf("negative skip should fail, got %v", err)
	}
	if err := c.Seek(4); !errors.Is(err, ErrShort) {
		t.Fatalf("seek past end should fail, got %v", err)
	}
	if err := c.Seek(3); err != nil {
		t.Fatalf("seek to end: %v", err)
	}
	if _, err := c.Peek(); !errors.Is(err, ErrShort) {
		t.Fatalf("peek at end should fail, got %v", err)
	}
}
