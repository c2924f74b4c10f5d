// Package reader is the cell-level engine behind pkg/hive. It resolves
// hive-relative offsets to cells, decodes NK/VK records and reassembles
// value payloads. Offsets returned here are the only handles it hands out.
package reader

import (
	"errors"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/internal/format"
	"github.com/joshuapare/artifactkit/internal/mmfile"
	"github.com/joshuapare/artifactkit/pkg/types"
)

const (
	// DefaultNKCacheSize bounds the decoded-NK cache.
	DefaultNKCacheSize = 4096
	// maxListDepth bounds ri nesting; real hives use one level.
	maxListDepth = 8
)

// Reader gives read-only access to the cells of one hive image. It is safe for
// concurrent use once opened.
type Reader struct {
	buf     []byte
	release func() error
	head    format.Header
	bins    []binRange
	nkCache *lru.Cache[uint32, format.NK]
}

// binRange is the absolute [start, end) span of one hive bin.
type binRange struct {
	start int
	end   int
}

// Open maps the hive at path.
func Open(path string) (*Reader, error) {
	data, release, err := mmfile.Map(path)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: "open hive " + path, Err: err}
	}
	r, err := newReader(data, release)
	if err != nil {
		_ = release()
		return nil, err
	}
	return r, nil
}

// OpenBytes reads a hive held in memory. b must not be modified while the
// Reader is in use.
func OpenBytes(b []byte) (*Reader, error) {
	return newReader(b, nil)
}

func newReader(b []byte, release func() error) (*Reader, error) {
	head, err := format.ParseHeader(b)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: err.Error(), Err: types.ErrNotHive}
	}
	cache, err := lru.New[uint32, format.NK](DefaultNKCacheSize)
	if err != nil {
		return nil, err
	}
	r := &Reader{buf: b, release: release, head: head, nkCache: cache}
	if err := r.indexBins(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the mapping, if any. Data previously returned by the Reader
// must not be used afterwards.
func (r *Reader) Close() error {
	r.nkCache.Purge()
	if r.release == nil {
		return nil
	}
	rel := r.release
	r.release = nil
	return rel()
}

// Header returns the parsed base block.
func (r *Reader) Header() format.Header { return r.head }

// RootOffset returns the offset of the root key.
func (r *Reader) RootOffset() uint32 { return r.head.RootCellOffset }

// indexBins walks every hive bin once so cell lookups can be bounded by the
// bin they fall in. The header's data size is advisory: dirty hives
// routinely disagree with the bins actually present.
func (r *Reader) indexBins() error {
	end := format.HeaderSize + int(r.head.HiveBinsDataSize)
	if end > len(r.buf) || r.head.HiveBinsDataSize == 0 {
		end = len(r.buf)
	}
	off := format.HeaderSize
	for off < end {
		_, next, err := format.NextHBIN(r.buf, off)
		if err != nil {
			if len(r.bins) > 0 {
				// Trailing garbage after at least one good bin.
				break
			}
			return wrapFormatErr(err)
		}
		r.bins = append(r.bins, binRange{start: off, end: next})
		off = next
	}
	if len(r.bins) == 0 {
		return &types.Error{Kind: types.ErrKindFormat, Msg: "hive has no bins", Err: types.ErrFormat}
	}
	return nil
}

func (r *Reader) binFor(abs int) (binRange, bool) {
	i := sort.Search(len(r.bins), func(i int) bool { return r.bins[i].end > abs })
	if i == len(r.bins) || abs < r.bins[i].start+format.HBINHeaderSize {
		return binRange{}, false
	}
	return r.bins[i], true
}

// cell resolves a hive-relative offset to an allocated cell.
func (r *Reader) cell(off uint32) (format.Cell, error) {
	if off == format.InvalidOffset {
		return format.Cell{}, formatErr("cell offset unset")
	}
	abs, ok := buf.AddOverflowSafe(format.HeaderSize, int(off))
	if !ok {
		return format.Cell{}, formatErr(fmt.Sprintf("cell offset %#x out of range", off))
	}
	bin, ok := r.binFor(abs)
	if !ok {
		return format.Cell{}, formatErr(fmt.Sprintf("cell offset %#x out of range", off))
	}
	c, err := format.ParseCell(r.buf[abs:bin.end])
	if err != nil {
		return format.Cell{}, fmt.Errorf("cell %#x: %w", off, wrapFormatErr(err))
	}
	if c.Free {
		return format.Cell{}, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("cell %#x is free", off),
			Err:  types.ErrCorrupt,
		}
	}
	return c, nil
}

// NK decodes the key record at off.
func (r *Reader) NK(off uint32) (format.NK, error) {
	if nk, ok := r.nkCache.Get(off); ok {
		return nk, nil
	}
	c, err := r.cell(off)
	if err != nil {
		return format.NK{}, err
	}
	nk, err := format.DecodeNK(c.Data)
	if err != nil {
		return format.NK{}, fmt.Errorf("key %#x: %w", off, wrapFormatErr(err))
	}
	r.nkCache.Add(off, nk)
	return nk, nil
}

// VK decodes the value record at off.
func (r *Reader) VK(off uint32) (format.VK, error) {
	c, err := r.cell(off)
	if err != nil {
		return format.VK{}, err
	}
	vk, err := format.DecodeVK(c.Data)
	if err != nil {
		return format.VK{}, fmt.Errorf("value %#x: %w", off, wrapFormatErr(err))
	}
	return vk, nil
}

// Subkeys returns the NK offsets of every child of nk, flattening ri lists.
func (r *Reader) Subkeys(nk format.NK) ([]uint32, error) {
	if !nk.HasSubkeys() {
		return nil, nil
	}
	out := make([]uint32, 0, nk.SubkeyCount)
	if err := r.subkeyList(nk.SubkeyListOffset, 0, &out); err != nil {
		return nil, err
	}
	if len(out) != int(nk.SubkeyCount) {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("subkey list holds %d entries, key declares %d", len(out), nk.SubkeyCount),
			Err:  types.ErrCorrupt,
		}
	}
	return out, nil
}

func (r *Reader) subkeyList(off uint32, depth int, out *[]uint32) error {
	if depth > maxListDepth {
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: "subkey lists nested too deeply", Err: types.ErrCorrupt}
	}
	c, err := r.cell(off)
	if err != nil {
		return fmt.Errorf("subkey list: %w", err)
	}
	if depth > 0 && format.IsRIList(c.Data) {
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: fmt.Sprintf("ri list %#x nested in ri list", off), Err: types.ErrCorrupt}
	}
	list, err := format.DecodeSubkeyList(c.Data)
	if err != nil {
		return fmt.Errorf("subkey list %#x: %w", off, wrapFormatErr(err))
	}
	if list.Kind != format.ListRI {
		*out = append(*out, list.Offsets...)
		return nil
	}
	for _, sub := range list.Offsets {
		if err := r.subkeyList(sub, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the VK offsets of nk.
func (r *Reader) Values(nk format.NK) ([]uint32, error) {
	if !nk.HasValues() {
		return nil, nil
	}
	c, err := r.cell(nk.ValueListOffset)
	if err != nil {
		return nil, fmt.Errorf("value list: %w", err)
	}
	offs, err := format.DecodeValueList(c.Data, nk.ValueCount)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	return offs, nil
}

func formatErr(msg string) error {
	return &types.Error{Kind: types.ErrKindFormat, Msg: msg, Err: types.ErrFormat}
}

func wrapFormatErr(err error) error {
	var te *types.Error
	if errors.As(err, &te) {
		return err
	}
	switch {
	case errors.Is(err, format.ErrSignatureMismatch),
		errors.Is(err, format.ErrTruncated),
		errors.Is(err, format.ErrSanityLimit):
		return &types.Error{Kind: types.ErrKindFormat, Msg: err.Error(), Err: types.ErrFormat}
	case errors.Is(err, format.ErrUnsupported):
		return &types.Error{Kind: types.ErrKindUnsupported, Msg: err.Error(), Err: types.ErrUnsupported}
	default:
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: err.Error(), Err: types.ErrCorrupt}
	}
}
