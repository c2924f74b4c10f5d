package hive

import (
	"fmt"
	"strings"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/internal/format"
	"github.com/joshuapare/artifactkit/pkg/textenc"
	"github.com/joshuapare/artifactkit/pkg/types"
)

// Value is a registry value. Its payload is read on demand.
type Value struct {
	h    *Hive
	vk   format.VK
	name string
}

// Name returns the value name; "" for the default value.
func (v Value) Name() string { return v.name }

// Type returns the stored type tag.
func (v Value) Type() types.RegType { return types.RegType(v.vk.Type) }

// Size returns the declared payload length.
func (v Value) Size() int { return v.vk.Size() }

// Data returns the raw payload regardless of type.
func (v Value) Data() ([]byte, error) {
	return v.h.r.ValueData(v.vk)
}

// StringData decodes a REG_SZ or REG_EXPAND_SZ. The string ends at the first
// NUL; a dangling odd byte is ignored.
func (v Value) StringData() (string, error) {
	if !v.Type().IsString() {
		return "", v.mismatch("REG_SZ")
	}
	b, err := v.Data()
	if err != nil {
		return "", err
	}
	return utf16z(b), nil
}

// DwordData decodes a REG_DWORD (little-endian) or REG_DWORD_BE.
func (v Value) DwordData() (uint32, error) {
	t := v.Type()
	if t != types.REG_DWORD && t != types.REG_DWORD_BE {
		return 0, v.mismatch("REG_DWORD")
	}
	b, err := v.sized(format.DWORDSize)
	if err != nil {
		return 0, err
	}
	if t == types.REG_DWORD_BE {
		return buf.U32BE(b), nil
	}
	return buf.U32LE(b), nil
}

// QwordData decodes a REG_QWORD.
func (v Value) QwordData() (uint64, error) {
	if v.Type() != types.REG_QWORD {
		return 0, v.mismatch("REG_QWORD")
	}
	b, err := v.sized(format.QWORDSize)
	if err != nil {
		return 0, err
	}
	return buf.U64LE(b), nil
}

// MultiStringData decodes a REG_MULTI_SZ. Decoding stops at the first empty
// string, which terminates the list.
func (v Value) MultiStringData() ([]string, error) {
	if v.Type() != types.REG_MULTI_SZ {
		return nil, v.mismatch("REG_MULTI_SZ")
	}
	b, err := v.Data()
	if err != nil {
		return nil, err
	}
	s, _ := textenc.DecodeUTF16LE(b[:len(b)&^1])
	var out []string
	for _, part := range strings.Split(s, "\x00") {
		if part == "" {
			break
		}
		out = append(out, part)
	}
	return out, nil
}

func (v Value) sized(n int) ([]byte, error) {
	b, err := v.Data()
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, &types.Error{
			Kind: types.ErrKindTruncated,
			Msg:  fmt.Sprintf("value %q holds %d bytes, %s needs %d", v.name, len(b), v.Type(), n),
			Err:  types.ErrTruncated,
		}
	}
	return b[:n], nil
}

func (v Value) mismatch(want string) error {
	return &types.Error{
		Kind: types.ErrKindType,
		Msg:  fmt.Sprintf("value %q is %s, not %s", v.name, v.Type(), want),
		Err:  types.ErrTypeMismatch,
	}
}

func utf16z(b []byte) string {
	b = b[:len(b)&^1]
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	s, _ := textenc.DecodeUTF16LE(b)
	return s
}
