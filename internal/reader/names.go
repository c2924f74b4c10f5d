package reader

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/artifactkit/internal/format"
	"github.com/joshuapare/artifactkit/pkg/textenc"
)

// KeyName decodes the name of nk to UTF-8.
func KeyName(nk format.NK) (string, error) {
	return decodeName(nk.NameRaw, nk.CompressedName())
}

// ValueName decodes the name of vk to UTF-8. The default value has an empty
// name.
func ValueName(vk format.VK) (string, error) {
	return decodeName(vk.NameRaw, vk.ASCIIName())
}

// Compressed names are Windows-1252; the rest are UTF-16LE.
func decodeName(raw []byte, compressed bool) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	if compressed {
		if isASCII(raw) {
			return string(raw), nil
		}
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decode name: %w", err)
		}
		return string(out), nil
	}
	if len(raw)%2 != 0 {
		return "", formatErr("utf-16 name has odd length")
	}
	s, _ := textenc.DecodeUTF16LE(raw)
	return s, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// Child finds the subkey of nk called name, compared case-insensitively.
func (r *Reader) Child(nk format.NK, name string) (uint32, bool, error) {
	offs, err := r.Subkeys(nk)
	if err != nil {
		return 0, false, err
	}
	for _, off := range offs {
		child, err := r.NK(off)
		if err != nil {
			return 0, false, err
		}
		n, err := KeyName(child)
		if err != nil {
			return 0, false, err
		}
		if strings.EqualFold(n, name) {
			return off, true, nil
		}
	}
	return 0, false, nil
}

// FindValue finds the value of nk called name, compared case-insensitively.
// An empty name selects the default value.
func (r *Reader) FindValue(nk format.NK, name string) (format.VK, bool, error) {
	offs, err := r.Values(nk)
	if err != nil {
		return format.VK{}, false, err
	}
	for _, off := range offs {
		vk, err := r.VK(off)
		if err != nil {
			return format.VK{}, false, err
		}
		n, err := ValueName(vk)
		if err != nil {
			return format.VK{}, false, err
		}
		if strings.EqualFold(n, name) {
			return vk, true, nil
		}
	}
	return format.VK{}, false, nil
}
