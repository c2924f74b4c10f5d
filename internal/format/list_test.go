package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func makeList(sig string, width int, offsets ...uint32) []byte {
	b := make([]byte, ListHeaderSize+len(offsets)*width)
	copy(b, sig)
	binary.LittleEndian.PutUint16(b[SignatureSize:], uint16(len(offsets)))
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(b[ListHeaderSize+i*width:], off)
	}
	return b
}

func TestDecodeSubkeyList(t *testing.T) {
	cases := []struct {
		sig   string
		width int
		kind  ListKind
	}{
		{"li", LIEntrySize, ListLI},
		{"lf", LFEntrySize, ListLF},
		{"lh", LFEntrySize, ListLH},
		{"ri", LIEntrySize, ListRI},
	}
	for _, tc := range cases {
		t.Run(tc.sig, func(t *testing.T) {
			l, err := DecodeSubkeyList(makeList(tc.sig, tc.width, 0x20, 0x80, 0x120))
			if err != nil {
				t.Fatalf("DecodeSubkeyList: %v", err)
			}
			if l.Kind != tc.kind || len(l.Offsets) != 3 || l.Offsets[2] != 0x120 {
				t.Fatalf("unexpected list: %+v", l)
			}
		})
	}
}

func TestDecodeSubkeyListErrors(t *testing.T) {
	short := makeList("lf", LFEntrySize, 0x20, 0x40)
	short = short[:len(short)-4]
	if _, err := DecodeSubkeyList(short); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncated, got %v", err)
	}
	if _, err := DecodeSubkeyList(makeList("zz", 4, 1)); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if !IsRIList(makeList("ri", 4)) || IsRIList(makeList("lh", 8)) {
		t.Fatalf("IsRIList mismatch")
	}
}

func TestDecodeValueList(t *testing.T) {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], 0x100)
	binary.LittleEndian.PutUint32(b[4:], 0x200)
	got, err := DecodeValueList(b, 2)
	if err != nil || len(got) != 2 || got[1] != 0x200 {
		t.Fatalf("DecodeValueList = %v, %v", got, err)
	}
	if _, err := DecodeValueList(b, 5); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncated, got %v", err)
	}
	if got, err := DecodeValueList(nil, 0); err != nil || got != nil {
		t.Fatalf("empty list = %v, %v", got, err)
	}
}
