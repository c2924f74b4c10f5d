package buf

import "testing"

func TestCellSizeSign(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want int32
	}{
		{"allocated", []byte{0xa0, 0xff, 0xff, 0xff}, -0x60},
		{"free", []byte{0x20, 0x00, 0x00, 0x00}, 0x20},
		{"short", []byte{0xa0, 0xff}, 0},
	}
	for _, tt := range tests {
		if got := I32LE(tt.raw); got != tt.want {
			t.Errorf("%s: I32LE = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDwordByteOrder(t *testing.T) {
	// REG_DWORD 0x00000409 and its REG_DWORD_BE form
	le := []byte{0x09, 0x04, 0x00, 0x00}
	be := []byte{0x00, 0x00, 0x04, 0x09}
	if got := U32LE(le); got != 0x409 {
		t.Fatalf("U32LE = %#x, want 0x409", got)
	}
	if got := U32BE(be); got != 0x409 {
		t.Fatalf("U32BE = %#x, want 0x409", got)
	}
	if U32LE(be[:3]) != 0 || U32BE(le[:3]) != 0 {
		t.Fatalf("three-byte dwords should read as 0")
	}
}

func TestFiletimeAndSignature(t *testing.T) {
	// a FILETIME from April 2023
	ft := []byte{0x00, 0x38, 0x3d, 0x8b, 0x4a, 0x65, 0xd9, 0x01}
	if got := U64LE(ft); got != 0x01d9654a8b3d3800 {
		t.Fatalf("U64LE = %#x", got)
	}
	if U64LE(ft[:7]) != 0 {
		t.Fatalf("seven-byte FILETIME should read as 0")
	}
	if got := U16LE([]byte("nk")); got != 0x6b6e {
		t.Fatalf("U16LE(nk) = %#x, want 0x6b6e", got)
	}
	if U16LE([]byte("n")) != 0 {
		t.Fatalf("one-byte read should be 0")
	}
}

func TestPutInlineDword(t *testing.T) {
	field := make([]byte, 4)
	PutU32LE(field, 0x0000bbaa)
	if field[0] != 0xaa || field[1] != 0xbb || field[2] != 0 || field[3] != 0 {
		t.Fatalf("PutU32LE wrote %x", field)
	}
	if U32LE(field) != 0xbbaa {
		t.Fatalf("round trip = %#x", U32LE(field))
	}
}
