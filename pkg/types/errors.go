package types

import "errors"

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat      ErrKind = iota // bad signature, offset out of range, inconsistent size
	ErrKindCorrupt                    // structure decodes but contradicts itself
	ErrKindUnsupported                // recognised variant we do not decode
	ErrKindNotFound                   // key path or value name absent
	ErrKindType                       // accessor does not match the stored value type
	ErrKindTruncated                  // payload shorter than its type requires
	ErrKindIO                         // file open/read failure
	ErrKindXML                        // event payload does not match the event schema
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindFormat:
		return "format"
	case ErrKindCorrupt:
		return "corrupt"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindNotFound:
		return "not found"
	case ErrKindType:
		return "type mismatch"
	case ErrKindTruncated:
		return "truncated"
	case ErrKindIO:
		return "io"
	case ErrKindXML:
		return "xml decode"
	default:
		return "unknown"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels commonly returned by implementations.
var (
	// ErrNotHive indicates the buffer lacks a valid "regf" header.
	ErrNotHive = &Error{Kind: ErrKindFormat, Msg: "not a registry hive (bad regf header)"}
	// ErrNotEvtx indicates the file lacks a valid "ElfFile" header.
	ErrNotEvtx = &Error{Kind: ErrKindFormat, Msg: "not an event log (bad ElfFile header)"}
	// ErrFormat indicates an offset or size that does not fit the buffer.
	ErrFormat = &Error{Kind: ErrKindFormat, Msg: "malformed structure"}
	// ErrCorrupt indicates a structure that contradicts itself.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt structure"}
	// ErrUnsupported indicates a recognised but unsupported variant.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Msg: "unsupported feature"}
	// ErrNotFound indicates a missing key, value or file.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrTypeMismatch indicates the requested decode doesn't match the value type.
	ErrTypeMismatch = &Error{Kind: ErrKindType, Msg: "registry value has different type"}
	// ErrTruncated indicates a value payload shorter than its type requires.
	ErrTruncated = &Error{Kind: ErrKindTruncated, Msg: "value data truncated"}
	// ErrXMLDecode indicates an event payload that does not match the event schema.
	ErrXMLDecode = &Error{Kind: ErrKindXML, Msg: "event xml does not match schema"}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (ErrKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	for err != nil {
		var te *Error
		if !errors.As(err, &te) {
			return false
		}
		if te.Kind == kind {
			return true
		}
		err = te.Err
	}
	return false
}
