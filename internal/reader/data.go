package reader

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/internal/format"
	"github.com/joshuapare/artifactkit/pkg/types"
)

// ValueData returns a copy of the payload of vk, reassembling big-data
// records.
func (r *Reader) ValueData(vk format.VK) ([]byte, error) {
	size := vk.Size()
	if vk.Inline() {
		data, err := vk.InlineData()
		if err != nil {
			return nil, wrapFormatErr(err)
		}
		return data, nil
	}
	if size == 0 {
		return []byte{}, nil
	}
	c, err := r.cell(vk.DataOffset)
	if err != nil {
		return nil, fmt.Errorf("value data: %w", err)
	}
	if size > len(c.Data) {
		if format.IsDB(c.Data) {
			return r.bigData(c.Data, size)
		}
		return nil, formatErr(fmt.Sprintf("value data cell holds %d bytes, record declares %d", len(c.Data), size))
	}
	return bytes.Clone(c.Data[:size]), nil
}

// bigData concatenates the blocks of a db record. Every block carries
// DBBlockPadding trailing bytes that are not part of the value.
func (r *Reader) bigData(dbCell []byte, size int) ([]byte, error) {
	db, err := format.DecodeDB(dbCell)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	list, err := r.cell(db.BlocklistOffset)
	if err != nil {
		return nil, fmt.Errorf("db blocklist: %w", err)
	}
	offs, err := format.DecodeValueList(list.Data, uint32(db.NumBlocks))
	if err != nil {
		return nil, fmt.Errorf("db blocklist: %w", wrapFormatErr(err))
	}

	out := make([]byte, 0, size)
	for i, off := range offs {
		block, err := r.cell(off)
		if err != nil {
			return nil, fmt.Errorf("db block %d: %w", i, err)
		}
		data := block.Data
		if len(data) > format.DBBlockPadding {
			data = data[:len(data)-format.DBBlockPadding]
		}
		if n := size - len(out); len(data) > n {
			data = data[:n]
		}
		out = append(out, data...)
		if len(out) == size {
			break
		}
	}
	if len(out) != size {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("db blocks hold %d bytes, record declares %d", len(out), size),
			Err:  types.ErrCorrupt,
		}
	}
	return out, nil
}

// Class returns the class name of nk, or "" when it has none.
func (r *Reader) Class(nk format.NK) (string, error) {
	if nk.ClassLength == 0 || nk.ClassOffset == format.InvalidOffset {
		return "", nil
	}
	c, err := r.cell(nk.ClassOffset)
	if err != nil {
		return "", fmt.Errorf("class name: %w", err)
	}
	raw, ok := buf.Slice(c.Data, 0, int(nk.ClassLength))
	if !ok {
		return "", formatErr("class name overruns its cell")
	}
	return decodeName(raw, false)
}
