// Package textenc decodes the untyped text found in registry binary values.
//
// Windows writes some blobs as single-byte extended ASCII and others as
// UTF-16LE without recording which. DecodeBlob picks between the two by
// looking for the zero high bytes that UTF-16LE Latin text carries.
package textenc

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names the decoder DecodeBlob selected.
type Encoding int

const (
	ExtendedASCII Encoding = iota
	UTF16LE
)

func (e Encoding) String() string {
	if e == UTF16LE {
		return "utf-16le"
	}
	return "extended-ascii"
}

// ReadExtendedASCII decodes length bytes at offset, widening every byte to
// the code point of the same value. It reports false when the window falls
// outside buf.
func ReadExtendedASCII(buf []byte, offset, length int) (string, bool) {
	if offset < 0 || length < 0 || offset > len(buf) || length > len(buf)-offset {
		return "", false
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(buf[offset : offset+length])
	if err != nil {
		return "", false
	}
	return string(out), true
}

// DecodeUTF16LE decodes buf, substituting U+FFFD for unpaired surrogates and
// a dangling odd byte. The second result reports whether any substitution
// happened.
func DecodeUTF16LE(buf []byte) (string, bool) {
	malformed := len(buf)%2 != 0 || hasUnpairedSurrogate(buf[:len(buf)&^1])
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(buf)
	if err != nil {
		return "", true
	}
	return string(out), malformed
}

func hasUnpairedSurrogate(b []byte) bool {
	for i := 0; i < len(b); i += 2 {
		u := rune(b[i]) | rune(b[i+1])<<8
		if !utf16.IsSurrogate(u) {
			continue
		}
		if u >= 0xDC00 || i+3 >= len(b) {
			return true
		}
		lo := rune(b[i+2]) | rune(b[i+3])<<8
		if lo < 0xDC00 || lo > 0xDFFF {
			return true
		}
		i += 2
	}
	return false
}

// IsInterleavedUTF16 reports whether every odd-index byte of buf is zero,
// the shape of UTF-16LE text limited to Latin-1 characters.
func IsInterleavedUTF16(buf []byte) bool {
	if len(buf) < 2 {
		return false
	}
	for i := 1; i < len(buf); i += 2 {
		if buf[i] != 0 {
			return false
		}
	}
	return true
}

// DecodeBlob decodes an untyped text blob and names the decoder it used.
// Trailing NUL terminators are removed from the result.
func DecodeBlob(buf []byte) (string, Encoding) {
	if IsInterleavedUTF16(buf) {
		s, _ := DecodeUTF16LE(buf)
		return strings.TrimRight(s, "\x00"), UTF16LE
	}
	s, _ := ReadExtendedASCII(buf, 0, len(buf))
	return strings.TrimRight(s, "\x00"), ExtendedASCII
}
