package evtx

import (
	"encoding/binary"
	"testing"
)

func TestScalarFormatting(t *testing.T) {
	le16 := func(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
	le32 := func(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
	le64 := func(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

	guid := []byte{0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	sid := []byte{1, 4, 0, 0, 0, 0, 0, 5}
	for _, sub := range []uint32{21, 1, 2, 3} {
		sid = binary.LittleEndian.AppendUint32(sid, sub)
	}
	systime := append(append(append(append(append(append(append(
		le16(2023), le16(5)...), le16(2)...), le16(17)...), le16(8)...), le16(30)...), le16(15)...), le16(250)...)

	tests := []struct {
		name string
		typ  uint8
		data []byte
		want string
	}{
		{"string", valString, []byte{'h', 0, 'i', 0, 0, 0}, "hi"},
		{"ansi", valAnsi, []byte{'c', 0xe9, 0}, "cé"},
		{"int8", valInt8, []byte{0xff}, "-1"},
		{"uint8", valUInt8, []byte{0xff}, "255"},
		{"int16", valInt16, le16(0xfffe), "-2"},
		{"uint16", valUInt16, le16(4624), "4624"},
		{"int32", valInt32, le32(0xffffffff), "-1"},
		{"uint32", valUInt32, le32(4000000000), "4000000000"},
		{"int64", valInt64, le64(^uint64(0)), "-1"},
		{"uint64", valUInt64, le64(1 << 40), "1099511627776"},
		{"bool", valBool, le32(1), "true"},
		{"binary", valBinary, []byte{0xde, 0xad}, "DEAD"},
		{"guid", valGUID, guid, "{00112233-4455-6677-8899-AABBCCDDEEFF}"},
		{"sizet", valSizeT, le64(0x1f), "0x1f"},
		{"filetime", valFileTime, le64(128920292891234567), "2009-07-14T07:14:49.123456Z"},
		{"systime", valSysTime, systime, "2023-05-17T08:30:15.250000Z"},
		{"sid", valSID, sid, "S-1-5-21-1-2-3"},
		{"hex32", valHexInt32, le32(0x3e7), "0x3e7"},
		{"hex64", valHexInt64, le64(0x1234), "0x1234"},
		{"unknown", 0x7f, []byte{1, 2}, "0102"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := value{typ: tt.typ, data: tt.data}.String()
			if err != nil {
				t.Fatalf("String: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArrayFormatting(t *testing.T) {
	strs := []byte{'a', 0, 0, 0, 'b', 0, 'c', 0, 0, 0}
	got, err := value{typ: valArray | valString, data: strs}.String()
	if err != nil || got != "a, bc" {
		t.Fatalf("string array = %q, %v", got, err)
	}

	ints := binary.LittleEndian.AppendUint16(binary.LittleEndian.AppendUint16(nil, 1), 2)
	got, err = value{typ: valArray | valUInt16, data: ints}.String()
	if err != nil || got != "1, 2" {
		t.Fatalf("uint16 array = %q, %v", got, err)
	}

	if _, err := (value{typ: valArray | valUInt32, data: []byte{1, 2, 3}}).String(); err == nil {
		t.Fatalf("expected error for ragged array")
	}
}

func TestShortValueErrors(t *testing.T) {
	if _, err := (value{typ: valUInt64, data: []byte{1, 2}}).String(); err == nil {
		t.Fatalf("expected error for short uint64")
	}
	if _, err := (value{typ: valSID, data: []byte{1, 4, 0, 0, 0, 0, 0, 5}}).String(); err == nil {
		t.Fatalf("expected error for sid missing sub-authorities")
	}
	got, err := value{typ: valUInt32}.String()
	if err != nil || got != "" {
		t.Fatalf("empty value = %q, %v", got, err)
	}
}
