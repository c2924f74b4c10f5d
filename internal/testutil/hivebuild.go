package testutil

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/joshuapare/artifactkit/internal/format"
)

// HiveBuilder assembles a minimal but structurally valid REGF image in
// memory. All cells live in one hive bin sized to fit.
//
//	b := testutil.NewHive()
//	k := b.Root().Add("ControlSet001").Add("Control").Add("ComputerName")
//	k.SetString("ComputerName", "WS01")
//	data := b.Bytes()
type HiveBuilder struct {
	root *KeySpec
	bins []byte
}

// KeySpec describes one key. Offset is filled in by Bytes.
type KeySpec struct {
	Name      string
	LastWrite uint64
	// ListKind selects the subkey index flavour: "lf" (default), "lh", "li"
	// or "ri" (two lh lists behind an ri).
	ListKind string
	// UTF16Name stores the name as UTF-16LE instead of compressed 8-bit.
	UTF16Name bool
	Subkeys   []*KeySpec
	Values    []*ValueSpec

	Offset uint32
}

// ValueSpec describes one value. Offset is filled in by Bytes.
type ValueSpec struct {
	Name   string
	Type   uint32
	Data   []byte
	Offset uint32
}

// NewHive returns a builder with an empty root key named "ROOT".
func NewHive() *HiveBuilder {
	return &HiveBuilder{root: &KeySpec{Name: "ROOT"}}
}

// Root returns the root key spec.
func (h *HiveBuilder) Root() *KeySpec { return h.root }

// Add appends a subkey and returns it.
func (k *KeySpec) Add(name string) *KeySpec {
	c := &KeySpec{Name: name, LastWrite: k.LastWrite}
	k.Subkeys = append(k.Subkeys, c)
	return c
}

// Key walks or creates a chain of subkeys.
func (k *KeySpec) Key(names ...string) *KeySpec {
	cur := k
next:
	for _, n := range names {
		for _, c := range cur.Subkeys {
			if c.Name == n {
				cur = c
				continue next
			}
		}
		cur = cur.Add(n)
	}
	return cur
}

// Set attaches a value with a raw payload.
func (k *KeySpec) Set(name string, typ uint32, data []byte) *ValueSpec {
	v := &ValueSpec{Name: name, Type: typ, Data: data}
	k.Values = append(k.Values, v)
	return v
}

// SetString stores a NUL-terminated REG_SZ.
func (k *KeySpec) SetString(name, s string) *ValueSpec {
	return k.Set(name, 1, UTF16Z(s))
}

// SetDword stores a REG_DWORD.
func (k *KeySpec) SetDword(name string, v uint32) *ValueSpec {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return k.Set(name, 4, b)
}

// SetQword stores a REG_QWORD.
func (k *KeySpec) SetQword(name string, v uint64) *ValueSpec {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return k.Set(name, 11, b)
}

// SetBinary stores a REG_BINARY.
func (k *KeySpec) SetBinary(name string, data []byte) *ValueSpec {
	return k.Set(name, 3, data)
}

// UTF16Z encodes s as UTF-16LE with a terminating NUL.
func UTF16Z(s string) []byte {
	return append(UTF16(s), 0, 0)
}

// UTF16 encodes s as UTF-16LE without a terminator.
func UTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

// Bytes lays out the hive and returns the complete image.
func (h *HiveBuilder) Bytes() []byte {
	h.bins = make([]byte, format.HBINHeaderSize)
	rootOff := h.writeKey(h.root, format.InvalidOffset, true)

	used := len(h.bins)
	total := (used + format.CellHeaderSize + format.HBINAlignment - 1) / format.HBINAlignment * format.HBINAlignment
	if total-used < 8 {
		total += format.HBINAlignment
	}
	h.bins = append(h.bins, make([]byte, total-used)...)
	// Remaining space is one free cell.
	binary.LittleEndian.PutUint32(h.bins[used:], uint32(total-used))

	copy(h.bins, format.HBINSignature)
	binary.LittleEndian.PutUint32(h.bins[format.HBINSizeOffset:], uint32(total))

	out := make([]byte, format.HeaderSize+total)
	copy(out, format.REGFSignature)
	binary.LittleEndian.PutUint32(out[format.REGFPrimarySeqOffset:], 1)
	binary.LittleEndian.PutUint32(out[format.REGFSecondarySeqOffset:], 1)
	binary.LittleEndian.PutUint64(out[format.REGFTimeStampOffset:], h.root.LastWrite)
	binary.LittleEndian.PutUint32(out[format.REGFMajorVersionOffset:], 1)
	binary.LittleEndian.PutUint32(out[format.REGFMinorVersionOffset:], 5)
	binary.LittleEndian.PutUint32(out[format.REGFFormatOffset:], 1)
	binary.LittleEndian.PutUint32(out[format.REGFRootCellOffset:], rootOff)
	binary.LittleEndian.PutUint32(out[format.REGFDataSizeOffset:], uint32(total))
	binary.LittleEndian.PutUint32(out[format.REGFClusterOffset:], 1)
	var sum uint32
	for i := 0; i < 0x1FC; i += 4 {
		sum ^= binary.LittleEndian.Uint32(out[i:])
	}
	binary.LittleEndian.PutUint32(out[0x1FC:], sum)
	copy(out[format.HeaderSize:], h.bins)
	return out
}

// alloc reserves an allocated cell with room for n payload bytes and returns
// its hive-relative offset.
func (h *HiveBuilder) alloc(n int) uint32 {
	size := (n + format.CellHeaderSize + 7) &^ 7
	off := len(h.bins)
	h.bins = append(h.bins, make([]byte, size)...)
	binary.LittleEndian.PutUint32(h.bins[off:], uint32(-int32(size)))
	return uint32(off)
}

func (h *HiveBuilder) payload(off uint32) []byte {
	return h.bins[off+format.CellHeaderSize:]
}

func (h *HiveBuilder) writeKey(k *KeySpec, parent uint32, root bool) uint32 {
	name := []byte(k.Name)
	flags := uint16(format.NKFlagCompressedName)
	if k.UTF16Name {
		name = UTF16(k.Name)
		flags = 0
	}
	if root {
		flags |= format.NKFlagRootKey
	}
	off := h.alloc(format.NKFixedHeaderSize + len(name))
	k.Offset = off
	p := h.payload(off)
	copy(p, format.NKSignature)
	binary.LittleEndian.PutUint16(p[format.NKFlagsOffset:], flags)
	binary.LittleEndian.PutUint64(p[format.NKLastWriteOffset:], k.LastWrite)
	binary.LittleEndian.PutUint32(p[format.NKParentOffset:], parent)
	binary.LittleEndian.PutUint32(p[format.NKSubkeyListOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(p[format.NKValueListOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(p[format.NKSecurityOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(p[format.NKClassNameOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint16(p[format.NKNameLenOffset:], uint16(len(name)))
	copy(p[format.NKNameOffset:], name)

	if len(k.Values) > 0 {
		offs := make([]uint32, len(k.Values))
		for i, v := range k.Values {
			offs[i] = h.writeValue(v)
		}
		list := h.alloc(4 * len(offs))
		lp := h.payload(list)
		for i, o := range offs {
			binary.LittleEndian.PutUint32(lp[4*i:], o)
		}
		p = h.payload(off)
		binary.LittleEndian.PutUint32(p[format.NKValueCountOffset:], uint32(len(offs)))
		binary.LittleEndian.PutUint32(p[format.NKValueListOffset:], list)
	}

	if len(k.Subkeys) > 0 {
		offs := make([]uint32, len(k.Subkeys))
		for i, c := range k.Subkeys {
			offs[i] = h.writeKey(c, off, false)
		}
		list := h.writeList(k.ListKind, offs)
		p = h.payload(off)
		binary.LittleEndian.PutUint32(p[format.NKSubkeyCountOffset:], uint32(len(offs)))
		binary.LittleEndian.PutUint32(p[format.NKSubkeyListOffset:], list)
	}
	return off
}

func (h *HiveBuilder) writeList(kind string, offs []uint32) uint32 {
	switch kind {
	case "ri":
		mid := len(offs) / 2
		a := h.writeList("lh", offs[:mid])
		b := h.writeList("lh", offs[mid:])
		return h.writeIndex("ri", format.LIEntrySize, []uint32{a, b})
	case "li":
		return h.writeIndex("li", format.LIEntrySize, offs)
	case "lh":
		return h.writeIndex("lh", format.LFEntrySize, offs)
	default:
		return h.writeIndex("lf", format.LFEntrySize, offs)
	}
}

func (h *HiveBuilder) writeIndex(sig string, width int, offs []uint32) uint32 {
	off := h.alloc(format.ListHeaderSize + width*len(offs))
	p := h.payload(off)
	copy(p, sig)
	binary.LittleEndian.PutUint16(p[format.SignatureSize:], uint16(len(offs)))
	for i, o := range offs {
		binary.LittleEndian.PutUint32(p[format.ListHeaderSize+i*width:], o)
	}
	return off
}

func (h *HiveBuilder) writeValue(v *ValueSpec) uint32 {
	name := []byte(v.Name)
	off := h.alloc(format.VKMinSize + len(name))
	v.Offset = off

	var length, dataOff uint32
	switch n := len(v.Data); {
	case n <= format.DWORDSize:
		length = uint32(n) | format.VKDataInlineBit
		var inline [4]byte
		copy(inline[:], v.Data)
		dataOff = binary.LittleEndian.Uint32(inline[:])
	case n > format.DBBlockThreshold:
		length = uint32(n)
		dataOff = h.writeBigData(v.Data)
	default:
		length = uint32(n)
		dataOff = h.alloc(n)
		copy(h.payload(dataOff), v.Data)
	}

	p := h.payload(off)
	copy(p, format.VKSignature)
	binary.LittleEndian.PutUint16(p[format.VKNameLenOffset:], uint16(len(name)))
	binary.LittleEndian.PutUint32(p[format.VKDataLenOffset:], length)
	binary.LittleEndian.PutUint32(p[format.VKDataOffOffset:], dataOff)
	binary.LittleEndian.PutUint32(p[format.VKTypeOffset:], v.Type)
	binary.LittleEndian.PutUint16(p[format.VKFlagsOffset:], format.VKFlagASCIIName)
	copy(p[format.VKNameOffset:], name)
	return off
}

func (h *HiveBuilder) writeBigData(data []byte) uint32 {
	var blocks []uint32
	for len(data) > 0 {
		n := min(len(data), format.DBBlockThreshold)
		b := h.alloc(n + format.DBBlockPadding)
		copy(h.payload(b), data[:n])
		blocks = append(blocks, b)
		data = data[n:]
	}
	list := h.alloc(4 * len(blocks))
	lp := h.payload(list)
	for i, b := range blocks {
		binary.LittleEndian.PutUint32(lp[4*i:], b)
	}
	db := h.alloc(format.DBMinSize)
	p := h.payload(db)
	copy(p, format.DBSignature)
	binary.LittleEndian.PutUint16(p[format.DBNumBlocksOffset:], uint16(len(blocks)))
	binary.LittleEndian.PutUint32(p[format.DBBlocklistOffset:], list)
	return db
}
