package format

import (
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
)

// ListKind identifies the flavour of an index list cell.
type ListKind uint8

const (
	ListLI ListKind = iota + 1 // bare NK offsets
	ListLF                     // NK offset + 4-byte name hint
	ListLH                     // NK offset + 4-byte name hash
	ListRI                     // offsets of further li/lf/lh lists
)

// SubkeyList is a decoded index list. For ListRI the offsets reference
// sub-lists rather than NK cells.
type SubkeyList struct {
	Kind    ListKind
	Offsets []uint32
}

// DecodeSubkeyList decodes any index list cell payload:
//
//	Offset  Size  Field
//	0x00    2     'l' 'i' | 'l' 'f' | 'l' 'h' | 'r' 'i'
//	0x02    2     Entry count
//	0x04    ...   Entries (4 bytes for li/ri, 8 bytes for lf/lh)
func DecodeSubkeyList(b []byte) (SubkeyList, error) {
	if len(b) < ListHeaderSize {
		return SubkeyList{}, fmt.Errorf("subkey list: %w", ErrTruncated)
	}
	var (
		kind  ListKind
		width int
	)
	switch string(b[:SignatureSize]) {
	case "li":
		kind, width = ListLI, LIEntrySize
	case "lf":
		kind, width = ListLF, LFEntrySize
	case "lh":
		kind, width = ListLH, LFEntrySize
	case "ri":
		kind, width = ListRI, LIEntrySize
	default:
		return SubkeyList{}, fmt.Errorf("subkey list %q: %w", b[:SignatureSize], ErrUnsupported)
	}
	count := int(buf.U16LE(b[SignatureSize:]))
	if _, err := buf.CheckListBounds(len(b), ListHeaderSize, count, width); err != nil {
		return SubkeyList{}, fmt.Errorf("subkey list: %w: %v", ErrTruncated, err)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = buf.U32LE(b[ListHeaderSize+i*width:])
	}
	return SubkeyList{Kind: kind, Offsets: out}, nil
}

// IsRIList reports whether b holds an indirect (ri) list.
func IsRIList(b []byte) bool {
	return len(b) >= SignatureSize && string(b[:SignatureSize]) == "ri"
}

// DecodeValueList decodes the headerless array of VK offsets referenced by an
// NK record. The cell may be larger than needed; count bounds the read.
func DecodeValueList(b []byte, count uint32) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	if _, err := buf.CheckListBounds(len(b), 0, int(count), OffsetFieldSize); err != nil {
		return nil, fmt.Errorf("value list: %w: %v", ErrTruncated, err)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = buf.U32LE(b[i*OffsetFieldSize:])
	}
	return out, nil
}
