package evtx

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/pkg/textenc"
	"github.com/joshuapare/artifactkit/pkg/wintime"
)

// Substitution value types.
const (
	valNull     = 0x00
	valString   = 0x01
	valAnsi     = 0x02
	valInt8     = 0x03
	valUInt8    = 0x04
	valInt16    = 0x05
	valUInt16   = 0x06
	valInt32    = 0x07
	valUInt32   = 0x08
	valInt64    = 0x09
	valUInt64   = 0x0a
	valReal32   = 0x0b
	valReal64   = 0x0c
	valBool     = 0x0d
	valBinary   = 0x0e
	valGUID     = 0x0f
	valSizeT    = 0x10
	valFileTime = 0x11
	valSysTime  = 0x12
	valSID      = 0x13
	valHexInt32 = 0x14
	valHexInt64 = 0x15
	valBinXML   = 0x21
	valArray    = 0x80
)

// TimeLayout is the rendering of FILETIME and SYSTEMTIME values.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

func (v value) null() bool {
	return v.typ == valNull || len(v.data) == 0
}

// fixedSize returns the element width of fixed-size types, 0 otherwise.
func fixedSize(typ uint8) int {
	switch typ {
	case valInt8, valUInt8:
		return 1
	case valInt16, valUInt16:
		return 2
	case valInt32, valUInt32, valReal32, valBool, valHexInt32:
		return 4
	case valInt64, valUInt64, valReal64, valFileTime, valHexInt64:
		return 8
	case valGUID, valSysTime:
		return 16
	}
	return 0
}

// String renders the value as XML text content, unescaped.
func (v value) String() (string, error) {
	if v.null() {
		return "", nil
	}
	if v.typ&valArray != 0 {
		return v.array()
	}
	return scalar(v.typ, v.data)
}

// Arrays render as their elements joined by ", ".
func (v value) array() (string, error) {
	base := v.typ &^ valArray
	var parts []string
	switch base {
	case valString:
		s, _ := textenc.DecodeUTF16LE(v.data)
		parts = strings.Split(strings.TrimRight(s, "\x00"), "\x00")
	case valAnsi:
		parts = strings.Split(strings.TrimRight(string(v.data), "\x00"), "\x00")
	default:
		w := fixedSize(base)
		if w == 0 || len(v.data)%w != 0 {
			return "", errors.Errorf("array of type %#x with %d bytes", base, len(v.data))
		}
		for i := 0; i < len(v.data); i += w {
			s, err := scalar(base, v.data[i:i+w])
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", "), nil
}

func scalar(typ uint8, b []byte) (string, error) {
	if w := fixedSize(typ); w != 0 && len(b) < w {
		if typ == valBool && len(b) > 0 {
			return strconv.FormatBool(!isZero(b)), nil
		}
		return "", errors.Errorf("value type %#x needs %d bytes, have %d", typ, w, len(b))
	}
	switch typ {
	case valNull:
		return "", nil
	case valString:
		s, _ := textenc.DecodeUTF16LE(b)
		return strings.TrimRight(s, "\x00"), nil
	case valAnsi:
		s, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(s), "\x00"), nil
	case valInt8:
		return strconv.Itoa(int(int8(b[0]))), nil
	case valUInt8:
		return strconv.Itoa(int(b[0])), nil
	case valInt16:
		return strconv.Itoa(int(int16(buf.U16LE(b)))), nil
	case valUInt16:
		return strconv.Itoa(int(buf.U16LE(b))), nil
	case valInt32:
		return strconv.Itoa(int(buf.I32LE(b))), nil
	case valUInt32:
		return strconv.FormatUint(uint64(buf.U32LE(b)), 10), nil
	case valInt64:
		return strconv.FormatInt(int64(buf.U64LE(b)), 10), nil
	case valUInt64:
		return strconv.FormatUint(buf.U64LE(b), 10), nil
	case valReal32:
		return strconv.FormatFloat(float64(math.Float32frombits(buf.U32LE(b))), 'g', -1, 32), nil
	case valReal64:
		return strconv.FormatFloat(math.Float64frombits(buf.U64LE(b)), 'g', -1, 64), nil
	case valBool:
		return strconv.FormatBool(!isZero(b[:4])), nil
	case valBinary:
		return strings.ToUpper(hex.EncodeToString(b)), nil
	case valGUID:
		return formatGUID(b), nil
	case valSizeT:
		switch len(b) {
		case 4:
			return fmt.Sprintf("0x%x", buf.U32LE(b)), nil
		case 8:
			return fmt.Sprintf("0x%x", buf.U64LE(b)), nil
		}
		return "", errors.Errorf("size_t of %d bytes", len(b))
	case valFileTime:
		return wintime.Convert(buf.U64LE(b)).Format(TimeLayout), nil
	case valSysTime:
		return formatSystemTime(b), nil
	case valSID:
		return formatSID(b)
	case valHexInt32:
		return fmt.Sprintf("0x%x", buf.U32LE(b)), nil
	case valHexInt64:
		return fmt.Sprintf("0x%x", buf.U64LE(b)), nil
	default:
		return strings.ToUpper(hex.EncodeToString(b)), nil
	}
}

// formatGUID renders a mixed-endian Windows GUID as {XXXXXXXX-XXXX-...}.
func formatGUID(b []byte) string {
	var u uuid.UUID
	copy(u[:], b[:16])
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	return "{" + strings.ToUpper(u.String()) + "}"
}

func formatSystemTime(b []byte) string {
	f := func(i int) int { return int(buf.U16LE(b[2*i:])) }
	// year, month, weekday, day, hour, minute, second, millisecond
	t := time.Date(f(0), time.Month(f(1)), f(3), f(4), f(5), f(6), f(7)*int(time.Millisecond), time.UTC)
	return t.Format(TimeLayout)
}

// formatSID renders S-rev-authority-sub1-...-subN.
func formatSID(b []byte) (string, error) {
	if len(b) < 8 {
		return "", errors.Errorf("sid of %d bytes", len(b))
	}
	n := int(b[1])
	if len(b) < 8+4*n {
		return "", errors.Errorf("sid with %d sub-authorities in %d bytes", n, len(b))
	}
	var auth uint64
	for _, c := range b[2:8] {
		auth = auth<<8 | uint64(c)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "S-%d-%d", b[0], auth)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "-%d", buf.U32LE(b[8+4*i:]))
	}
	return sb.String(), nil
}
