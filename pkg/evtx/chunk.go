package evtx

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/pkg/wintime"
)

const (
	chunkMagic        = "ElfChnk\x00"
	chunkHeaderSize   = 0x200
	chunkFreeSpaceOff = 48
	recordMagic       = "**\x00\x00"
	recordHeaderSize  = 24
	// header plus the trailing size copy
	recordMinSize = recordHeaderSize + 4
)

type chunkReader struct {
	buf    []byte
	offset int64
}

func (c *chunkReader) fail(off int, id uint64, err error) *RecordError {
	return &RecordError{ChunkOffset: c.offset, Offset: off, RecordID: id, Err: err}
}

// each yields the records of one chunk and reports whether the consumer wants
// more.
func (c *chunkReader) each(yield func(Record, error) bool) bool {
	if isZero(c.buf) {
		return true
	}
	if !bytes.Equal(c.buf[:8], []byte(chunkMagic)) {
		return yield(Record{}, c.fail(0, 0, corrupt("bad chunk magic")))
	}
	end := int(buf.U32LE(c.buf[chunkFreeSpaceOff:]))
	if end < chunkHeaderSize || end > len(c.buf) {
		end = len(c.buf)
	}

	p := newParser(c.buf)
	for pos := chunkHeaderSize; pos+recordHeaderSize <= end; {
		head := c.buf[pos : pos+recordHeaderSize]
		if isZero(head) {
			return true
		}
		if !bytes.Equal(head[:4], []byte(recordMagic)) {
			if !yield(Record{}, c.fail(pos, 0, corrupt("bad record magic"))) {
				return false
			}
			if pos = c.resync(pos+1, end); pos < 0 {
				return true
			}
			continue
		}
		size := int(buf.U32LE(head[4:]))
		id := buf.U64LE(head[8:])
		if !c.framed(pos, size) {
			if !yield(Record{}, c.fail(pos, id, corrupt(fmt.Sprintf("bad record size %d", size)))) {
				return false
			}
			if pos = c.resync(pos+len(recordMagic), end); pos < 0 {
				return true
			}
			continue
		}

		xml, err := p.record(pos+recordHeaderSize, pos+size-4)
		var ok bool
		if err != nil {
			ok = yield(Record{}, c.fail(pos, id, err))
		} else {
			ok = yield(Record{ID: id, Written: wintime.Convert(buf.U64LE(head[16:])), XML: xml}, nil)
		}
		if !ok {
			return false
		}
		pos += size
	}
	return true
}

// framed reports whether a record of size bytes at pos fits the chunk and
// ends with a matching size copy.
func (c *chunkReader) framed(pos, size int) bool {
	return size >= recordMinSize && pos+size <= len(c.buf) &&
		buf.U32LE(c.buf[pos+size-4:]) == uint32(size)
}

// resync returns the offset of the next well-framed record at or after from,
// or -1 when the rest of the chunk holds none.
func (c *chunkReader) resync(from, end int) int {
	for from+recordHeaderSize <= end {
		i := bytes.Index(c.buf[from:end], []byte(recordMagic))
		if i < 0 {
			return -1
		}
		pos := from + i
		if pos+recordHeaderSize <= end && c.framed(pos, int(buf.U32LE(c.buf[pos+4:]))) {
			return pos
		}
		from = pos + 1
	}
	return -1
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
