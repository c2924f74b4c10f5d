package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
)

// Header captures the subset of the REGF base block needed to walk a hive.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'r' 'e' 'g' 'f'
//	 0x004   4    Primary sequence number
//	 0x008   4    Secondary sequence number
//	 0x00C   8    Last write timestamp (FILETIME)
//	 0x014   4    Major version
//	 0x018   4    Minor version
//	 0x024   4    Offset (relative to first HBIN) of the root cell (NK)
//	 0x028   4    Total size of HBIN data
//
// Sequence numbers that disagree mean the hive was not cleanly flushed. We
// record them but do not refuse to read such hives; images pulled from live
// systems are routinely dirty.
type Header struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWriteRaw      uint64
	MajorVersion      uint32
	MinorVersion      uint32
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
}

// Dirty reports whether the sequence numbers disagree.
func (h Header) Dirty() bool {
	return h.PrimarySequence != h.SecondarySequence
}

// ParseHeader validates the signature and extracts the header fields.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < REGFMinSize {
		return Header{}, fmt.Errorf("regf header: %w (have %d bytes)", ErrTruncated, len(b))
	}
	if !bytes.Equal(b[:REGFSignatureSize], REGFSignature) {
		return Header{}, fmt.Errorf("regf header: %w", ErrSignatureMismatch)
	}
	return Header{
		PrimarySequence:   buf.U32LE(b[REGFPrimarySeqOffset:]),
		SecondarySequence: buf.U32LE(b[REGFSecondarySeqOffset:]),
		LastWriteRaw:      buf.U64LE(b[REGFTimeStampOffset:]),
		MajorVersion:      buf.U32LE(b[REGFMajorVersionOffset:]),
		MinorVersion:      buf.U32LE(b[REGFMinorVersionOffset:]),
		RootCellOffset:    buf.U32LE(b[REGFRootCellOffset:]),
		HiveBinsDataSize:  buf.U32LE(b[REGFDataSizeOffset:]),
	}, nil
}
