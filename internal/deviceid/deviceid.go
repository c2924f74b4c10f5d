// Package deviceid parses the device identifier strings Windows stores as key
// names and value data under the Enum, MountedDevices and Portable Devices
// trees.
package deviceid

import (
	"fmt"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Disk is the vendor, product and revision triple of a storage device.
type Disk struct {
	Vendor   string
	Product  string
	Revision string
}

var diskRE = regexp.MustCompile(`^Disk&Ven_(?P<ven>.*?)&Prod_(?P<prod>.*?)(?:&Rev_(?P<rev>.*))?$`)

// ParseDiskID parses "Disk&Ven_X&Prod_Y&Rev_Z" as used below Enum\USBSTOR and
// Enum\SCSI. The revision part is optional.
func ParseDiskID(s string) (Disk, bool) {
	m := diskRE.FindStringSubmatch(s)
	if m == nil {
		return Disk{}, false
	}
	return Disk{
		Vendor:   strings.TrimSpace(m[1]),
		Product:  strings.TrimSpace(m[2]),
		Revision: strings.TrimSpace(m[3]),
	}, true
}

// Volume is a storage device reference with its instance serial and device
// interface class GUID.
type Volume struct {
	Disk
	Serial string
	GUID   string
}

var mountedRE = regexp.MustCompile(`Ven_(?P<ven>.*?)&Prod_(?P<prod>.*?)(?:&Rev_(?P<rev>.*?))?#(?P<ser>.*?)#(?P<guid>\S*)`)

// ParseMountedDevice parses the device path stored in MountedDevices data, for
// example `_??_USBSTOR#Disk&Ven_X&Prod_Y&Rev_Z#SERIAL&0#{guid}`.
func ParseMountedDevice(s string) (Volume, bool) {
	return parseVolume(mountedRE, s)
}

func parseVolume(re *regexp.Regexp, s string) (Volume, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return Volume{}, false
	}
	return Volume{
		Disk: Disk{
			Vendor:   strings.TrimSpace(m[1]),
			Product:  strings.TrimSpace(m[2]),
			Revision: strings.TrimSpace(m[3]),
		},
		Serial: strings.TrimSpace(m[4]),
		GUID:   strings.TrimSpace(m[5]),
	}, true
}

// VIDPID is a USB vendor and product id pair.
type VIDPID struct {
	VID uint16
	PID uint16
}

func (v VIDPID) String() string {
	return fmt.Sprintf("VID_%04X&PID_%04X", v.VID, v.PID)
}

// ParseVIDPID parses the fixed layout "VID_vvvv&PID_pppp..." used by USB and
// HID enumerator keys. The "Vid_" spelling is accepted as well.
func ParseVIDPID(s string) (VIDPID, bool) {
	if len(s) < 17 || !strings.EqualFold(s[:4], "VID_") || !strings.EqualFold(s[8:13], "&PID_") {
		return VIDPID{}, false
	}
	vid, err := ParseHex[uint16](s[4:8])
	if err != nil {
		return VIDPID{}, false
	}
	pid, err := ParseHex[uint16](s[13:17])
	if err != nil {
		return VIDPID{}, false
	}
	return VIDPID{VID: vid, PID: pid}, true
}

// PortableKind tells which layout a portable device key name has.
type PortableKind int

const (
	PortableDisk PortableKind = iota + 1 // SWD#...#DISK&VEN_..&PROD_..[&REV_..]#serial#{guid}
	PortableBus                          // SWD#WPDBUSENUM#{guid}#...
	PortableUSB                          // USB#VID_....&PID_....#...
)

// PortableDevice is a key name from the Windows Portable Devices tree.
type PortableDevice struct {
	Kind PortableKind
	Volume
	VIDPID VIDPID
}

var (
	portableDiskRE = regexp.MustCompile(`#DISK&VEN_(?P<ven>.*?)&PROD_(?P<prod>.*?)(?:&REV_(?P<rev>.*?))?#(?P<ser>.*?)#(?P<guid>\S*)`)
	portableBusRE  = regexp.MustCompile(`UM#(?P<guid>.*?)#`)
)

// ParsePortableDevice parses the device key names below
// Microsoft\Windows Portable Devices\Devices.
func ParsePortableDevice(s string) (PortableDevice, bool) {
	switch {
	case strings.HasPrefix(s, "SWD#") && strings.Contains(s, "DISK&VEN"):
		v, ok := parseVolume(portableDiskRE, s)
		if !ok {
			return PortableDevice{}, false
		}
		return PortableDevice{Kind: PortableDisk, Volume: v}, true
	case strings.HasPrefix(s, "SWD#"):
		m := portableBusRE.FindStringSubmatch(s)
		if m == nil {
			return PortableDevice{}, false
		}
		return PortableDevice{Kind: PortableBus, Volume: Volume{GUID: m[1]}}, true
	case strings.HasPrefix(s, "USB#"):
		id, ok := ParseVIDPID(s[4:])
		if !ok {
			return PortableDevice{}, false
		}
		return PortableDevice{Kind: PortableUSB, VIDPID: id}, true
	}
	return PortableDevice{}, false
}

// ParseHex parses a hexadecimal number with an optional 0x prefix into T.
func ParseHex[T constraints.Unsigned](s string) (T, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, bits.Len64(uint64(^T(0))))
	if err != nil {
		return 0, err
	}
	return T(v), nil
}

// ParseHex16 parses a 16-bit hexadecimal id such as "046d" or "0x046D".
func ParseHex16(s string) (uint16, error) { return ParseHex[uint16](s) }

// FormatHex16 formats an id as "0x046D".
func FormatHex16(v uint16) string { return fmt.Sprintf("0x%04X", v) }
