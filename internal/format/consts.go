package format

// Signatures of the on-disk records the reader understands.
var (
	REGFSignature = []byte{'r', 'e', 'g', 'f'}
	HBINSignature = []byte{'h', 'b', 'i', 'n'}
	NKSignature   = []byte{'n', 'k'}
	VKSignature   = []byte{'v', 'k'}
	LFSignature   = []byte{'l', 'f'}
	LHSignature   = []byte{'l', 'h'}
	LISignature   = []byte{'l', 'i'}
	RISignature   = []byte{'r', 'i'}
	DBSignature   = []byte{'d', 'b'}
)

const (
	// HeaderSize is the size of the REGF base block. Cell offsets stored in
	// the hive are relative to the end of this block.
	HeaderSize = 0x1000

	// HBINAlignment is the granularity of hive bin sizes.
	HBINAlignment = 0x1000

	HBINHeaderSize = 0x20
	CellHeaderSize = 4
	SignatureSize  = 2

	// InvalidOffset marks an unused cell reference.
	InvalidOffset = 0xFFFFFFFF

	OffsetFieldSize = 4
	DWORDSize       = 4
	QWORDSize       = 8
)

// REGF base block fields.
const (
	REGFSignatureOffset    = 0x000
	REGFSignatureSize      = 4
	REGFPrimarySeqOffset   = 0x004
	REGFSecondarySeqOffset = 0x008
	REGFTimeStampOffset    = 0x00C
	REGFMajorVersionOffset = 0x014
	REGFMinorVersionOffset = 0x018
	REGFTypeOffset         = 0x01C
	REGFFormatOffset       = 0x020
	REGFRootCellOffset     = 0x024
	REGFDataSizeOffset     = 0x028
	REGFClusterOffset      = 0x02C
	REGFMinSize            = 0x030
)

// HBIN header fields.
const (
	HBINFileOffsetField = 0x04
	HBINSizeOffset      = 0x08
)

// NK record fields, relative to the cell payload.
const (
	NKFlagsOffset          = 0x02
	NKLastWriteOffset      = 0x04
	NKParentOffset         = 0x10
	NKSubkeyCountOffset    = 0x14
	NKVolSubkeyCountOffset = 0x18
	NKSubkeyListOffset     = 0x1C
	NKValueCountOffset     = 0x24
	NKValueListOffset      = 0x28
	NKSecurityOffset       = 0x2C
	NKClassNameOffset      = 0x30
	NKNameLenOffset        = 0x48
	NKClassLenOffset       = 0x4A
	NKNameOffset           = 0x4C

	NKFixedHeaderSize = NKNameOffset

	NKFlagRootKey        = 0x0004
	NKFlagCompressedName = 0x0020
)

// VK record fields, relative to the cell payload.
const (
	VKNameLenOffset = 0x02
	VKDataLenOffset = 0x04
	VKDataOffOffset = 0x08
	VKTypeOffset    = 0x0C
	VKFlagsOffset   = 0x10
	VKNameOffset    = 0x14

	VKMinSize = VKNameOffset

	VKFlagASCIIName  = 0x0001
	VKDataInlineBit  = 0x80000000
	VKDataLengthMask = 0x7FFFFFFF
)

// Index (li/lf/lh/ri) list layout.
const (
	ListHeaderSize = 4
	LFEntrySize    = 8
	LIEntrySize    = OffsetFieldSize
)

// Big data (db) record layout.
const (
	DBNumBlocksOffset = 0x02
	DBBlocklistOffset = 0x04
	DBMinSize         = 0x08

	// DBBlockPadding is the number of trailing bytes in every db data block
	// that do not belong to the value.
	DBBlockPadding = 4
	// DBBlockThreshold is the value size above which Windows switches to
	// db records (only for hive minor version >= 4).
	DBBlockThreshold = 16344
)

// Sanity limits applied while decoding untrusted records.
const (
	MaxSubkeyCount  = 1 << 20
	MaxValueCount   = 1 << 20
	MaxNameLen      = 0x7FFF
	MaxClassLen     = 0x7FFF
	MaxValueDataLen = 1 << 30
)
