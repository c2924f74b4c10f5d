package evtx

import (
	"bytes"
	"io"
	"iter"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/pkg/types"
)

const (
	fileMagic       = "ElfFile\x00"
	fileHeaderSize  = 128
	ChunkSize       = 0x10000
	defaultHeadSize = 0x1000
)

// Header is the file header block.
type Header struct {
	FirstChunk      uint64
	LastChunk       uint64
	NextRecordID    uint64
	MinorVersion    uint16
	MajorVersion    uint16
	HeaderBlockSize uint16
	ChunkCount      uint16
	Flags           uint32
}

// Dirty reports whether the log was not closed cleanly.
func (h Header) Dirty() bool { return h.Flags&0x1 != 0 }

// Full reports whether the log reached its maximum size.
func (h Header) Full() bool { return h.Flags&0x2 != 0 }

// Record is one decoded event record.
type Record struct {
	ID      uint64
	Written time.Time
	XML     string
}

// File is an open event log.
type File struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer
	header Header
}

// Open opens the event log at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(errors.Wrapf(err, "open %s", path))
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ioErr(errors.Wrapf(err, "stat %s", path))
	}
	file, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	file.closer = f
	return file, nil
}

// NewReader reads an event log of the given size from r.
func NewReader(r io.ReaderAt, size int64) (*File, error) {
	head := make([]byte, fileHeaderSize)
	if _, err := r.ReadAt(head, 0); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "file shorter than evtx header", Err: types.ErrNotEvtx}
		}
		return nil, ioErr(errors.Wrap(err, "read file header"))
	}
	if !bytes.Equal(head[:8], []byte(fileMagic)) {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "bad file magic", Err: types.ErrNotEvtx}
	}
	h := Header{
		FirstChunk:      buf.U64LE(head[8:]),
		LastChunk:       buf.U64LE(head[16:]),
		NextRecordID:    buf.U64LE(head[24:]),
		MinorVersion:    buf.U16LE(head[36:]),
		MajorVersion:    buf.U16LE(head[38:]),
		HeaderBlockSize: buf.U16LE(head[40:]),
		ChunkCount:      buf.U16LE(head[42:]),
		Flags:           buf.U32LE(head[120:]),
	}
	if h.MajorVersion != 3 {
		return nil, &types.Error{
			Kind: types.ErrKindUnsupported,
			Msg:  errors.Errorf("evtx version %d.%d", h.MajorVersion, h.MinorVersion).Error(),
			Err:  types.ErrUnsupported,
		}
	}
	if h.HeaderBlockSize < fileHeaderSize {
		h.HeaderBlockSize = defaultHeadSize
	}
	return &File{r: r, size: size, header: h}, nil
}

// Header returns the parsed file header.
func (f *File) Header() Header { return f.header }

// Close closes the underlying file when it was opened by Open.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	c := f.closer
	f.closer = nil
	return c.Close()
}

// Records iterates over every record in file order. Errors are yielded in
// place of the records they affect; iteration continues afterwards unless
// the consumer stops.
func (f *File) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		chunk := make([]byte, ChunkSize)
		for off := int64(f.header.HeaderBlockSize); off < f.size; off += ChunkSize {
			if off+ChunkSize > f.size {
				yield(Record{}, &RecordError{ChunkOffset: off, Err: corrupt("trailing partial chunk")})
				return
			}
			if n, err := f.r.ReadAt(chunk, off); err != nil && !(n == len(chunk) && errors.Is(err, io.EOF)) {
				yield(Record{}, ioErr(errors.Wrapf(err, "read chunk at %#x", off)))
				return
			}
			if !(&chunkReader{buf: chunk, offset: off}).each(yield) {
				return
			}
		}
	}
}

func ioErr(err error) error {
	return &types.Error{Kind: types.ErrKindIO, Msg: "evtx io", Err: err}
}

func corrupt(msg string) error {
	return &types.Error{Kind: types.ErrKindCorrupt, Msg: msg, Err: types.ErrCorrupt}
}
