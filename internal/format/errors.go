package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrFreeCell indicates a cell marked free was encountered where allocation was required.
	ErrFreeCell = errors.New("format: cell not in use")
	// ErrUnsupported indicates a list or record variant we do not decode.
	ErrUnsupported = errors.New("format: unsupported record")
	// ErrSanityLimit indicates a count or length field beyond any real hive.
	ErrSanityLimit = errors.New("format: sanity limit exceeded")
	// ErrInlineOverflow indicates an inline value declaring more bytes than its field holds.
	ErrInlineOverflow = errors.New("format: inline data exceeds field")
)
