package format

import (
	"bytes"
	"fmt"
)

// DB is a big-data record. Values larger than DBBlockThreshold are split into
// blocks whose offsets are held in a separate blocklist cell.
//
//	Offset  Size  Field
//	0x00    2     'd' 'b'
//	0x02    2     Number of blocks
//	0x04    4     Blocklist cell offset
type DB struct {
	NumBlocks       uint16
	BlocklistOffset uint32
}

// IsDB reports whether a cell payload starts with the db signature.
func IsDB(b []byte) bool {
	return len(b) >= SignatureSize && bytes.Equal(b[:SignatureSize], DBSignature)
}

// DecodeDB decodes a db cell payload.
func DecodeDB(b []byte) (DB, error) {
	if !IsDB(b) {
		if len(b) < SignatureSize {
			return DB{}, fmt.Errorf("db: %w (have %d bytes)", ErrTruncated, len(b))
		}
		return DB{}, fmt.Errorf("db: %w", ErrSignatureMismatch)
	}
	n, err := CheckedReadU16(b, DBNumBlocksOffset)
	if err != nil {
		return DB{}, fmt.Errorf("db block count: %w", err)
	}
	list, err := CheckedReadU32(b, DBBlocklistOffset)
	if err != nil {
		return DB{}, fmt.Errorf("db blocklist: %w", err)
	}
	return DB{NumBlocks: n, BlocklistOffset: list}, nil
}
