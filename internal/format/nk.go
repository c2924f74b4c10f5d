package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
)

// NK is a decoded key node. Layout of the cell payload:
//
//	Offset  Size  Field
//	0x00    2     'n' 'k'
//	0x02    2     Flags (0x20 => name stored in 8-bit form)
//	0x04    8     Last write time (FILETIME)
//	0x10    4     Parent cell offset
//	0x14    4     Number of stable subkeys
//	0x1C    4     Stable subkey list offset
//	0x24    4     Number of values
//	0x28    4     Value list offset
//	0x2C    4     Security (sk) offset
//	0x30    4     Class name offset
//	0x48    2     Name length in bytes
//	0x4A    2     Class name length in bytes
//	0x4C    n     Name
//
// Volatile subkeys never reach disk, so their fields are not read.
type NK struct {
	Flags            uint16
	LastWriteRaw     uint64
	ParentOffset     uint32
	SubkeyCount      uint32
	SubkeyListOffset uint32
	ValueCount       uint32
	ValueListOffset  uint32
	SecurityOffset   uint32
	ClassOffset      uint32
	ClassLength      uint16
	NameRaw          []byte
}

// CompressedName reports whether NameRaw holds 8-bit characters rather than
// UTF-16LE.
func (nk NK) CompressedName() bool {
	return nk.Flags&NKFlagCompressedName != 0
}

// HasSubkeys reports whether the record declares subkeys. The list offset
// is not checked here; resolving an unset one fails.
func (nk NK) HasSubkeys() bool {
	return nk.SubkeyCount > 0
}

// HasValues reports whether the record declares values.
func (nk NK) HasValues() bool {
	return nk.ValueCount > 0
}

// DecodeNK decodes an NK cell payload.
func DecodeNK(b []byte) (NK, error) {
	if len(b) < NKFixedHeaderSize {
		return NK{}, fmt.Errorf("nk: %w (have %d, need %d)", ErrTruncated, len(b), NKFixedHeaderSize)
	}
	if !bytes.Equal(b[:SignatureSize], NKSignature) {
		return NK{}, fmt.Errorf("nk: %w", ErrSignatureMismatch)
	}

	nk := NK{
		Flags:            buf.U16LE(b[NKFlagsOffset:]),
		LastWriteRaw:     buf.U64LE(b[NKLastWriteOffset:]),
		ParentOffset:     buf.U32LE(b[NKParentOffset:]),
		SubkeyCount:      buf.U32LE(b[NKSubkeyCountOffset:]),
		SubkeyListOffset: buf.U32LE(b[NKSubkeyListOffset:]),
		ValueCount:       buf.U32LE(b[NKValueCountOffset:]),
		ValueListOffset:  buf.U32LE(b[NKValueListOffset:]),
		SecurityOffset:   buf.U32LE(b[NKSecurityOffset:]),
		ClassOffset:      buf.U32LE(b[NKClassNameOffset:]),
		ClassLength:      buf.U16LE(b[NKClassLenOffset:]),
	}
	if nk.SubkeyCount > MaxSubkeyCount {
		return NK{}, fmt.Errorf("nk subkey count %d: %w", nk.SubkeyCount, ErrSanityLimit)
	}
	if nk.ValueCount > MaxValueCount {
		return NK{}, fmt.Errorf("nk value count %d: %w", nk.ValueCount, ErrSanityLimit)
	}

	nameLen := int(buf.U16LE(b[NKNameLenOffset:]))
	if nameLen > MaxNameLen {
		return NK{}, fmt.Errorf("nk name len %d: %w", nameLen, ErrSanityLimit)
	}
	name, ok := buf.Slice(b, NKNameOffset, nameLen)
	if !ok {
		return NK{}, fmt.Errorf("nk name: %w (need %d bytes from %#x, have %d)",
			ErrTruncated, nameLen, NKNameOffset, len(b))
	}
	nk.NameRaw = name
	return nk, nil
}
