package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
)

// VK is a decoded value record.
//
//	Offset  Size  Field
//	0x00    2     'v' 'k'
//	0x02    2     Name length (0 => default value)
//	0x04    4     Data length; high bit set => data lives in the offset field
//	0x08    4     Data offset, or the data itself when inline
//	0x0C    4     Value type (REG_*)
//	0x10    2     Flags (0x01 => name stored in 8-bit form)
//	0x14    n     Name
type VK struct {
	DataLength uint32
	DataOffset uint32
	Type       uint32
	Flags      uint16
	NameRaw    []byte
}

// ASCIIName reports whether NameRaw holds 8-bit characters.
func (vk VK) ASCIIName() bool {
	return vk.Flags&VKFlagASCIIName != 0
}

// Inline reports whether the payload is stored in the DataOffset field.
func (vk VK) Inline() bool {
	return vk.DataLength&VKDataInlineBit != 0
}

// Size returns the payload length with the inline marker removed.
func (vk VK) Size() int {
	return int(vk.DataLength & VKDataLengthMask)
}

// InlineData returns the bytes held in the offset field of an inline value.
// The field holds at most four bytes; a longer declared length is an error.
func (vk VK) InlineData() ([]byte, error) {
	n := vk.Size()
	if n > DWORDSize {
		return nil, fmt.Errorf("vk inline length %d exceeds field: %w", n, ErrInlineOverflow)
	}
	out := make([]byte, DWORDSize)
	buf.PutU32LE(out, vk.DataOffset)
	return out[:n], nil
}

// DecodeVK decodes a VK cell payload.
func DecodeVK(b []byte) (VK, error) {
	if len(b) < VKMinSize {
		return VK{}, fmt.Errorf("vk: %w (have %d, need %d)", ErrTruncated, len(b), VKMinSize)
	}
	if !bytes.Equal(b[:SignatureSize], VKSignature) {
		return VK{}, fmt.Errorf("vk: %w", ErrSignatureMismatch)
	}
	vk := VK{
		DataLength: buf.U32LE(b[VKDataLenOffset:]),
		DataOffset: buf.U32LE(b[VKDataOffOffset:]),
		Type:       buf.U32LE(b[VKTypeOffset:]),
		Flags:      buf.U16LE(b[VKFlagsOffset:]),
	}
	if vk.Size() > MaxValueDataLen {
		return VK{}, fmt.Errorf("vk data len %d: %w", vk.Size(), ErrSanityLimit)
	}
	nameLen := int(buf.U16LE(b[VKNameLenOffset:]))
	name, ok := buf.Slice(b, VKNameOffset, nameLen)
	if !ok {
		return VK{}, fmt.Errorf("vk name: %w (need %d bytes from %#x, have %d)",
			ErrTruncated, nameLen, VKNameOffset, len(b))
	}
	vk.NameRaw = name
	return vk, nil
}
