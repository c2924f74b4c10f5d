package deviceid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiskID(t *testing.T) {
	tests := []struct {
		in   string
		want Disk
		ok   bool
	}{
		{"Disk&Ven_SanDisk&Prod_Cruzer_Blade&Rev_1.00", Disk{"SanDisk", "Cruzer_Blade", "1.00"}, true},
		{"Disk&Ven_NVMe&Prod_Samsung_SSD_970", Disk{"NVMe", "Samsung_SSD_970", ""}, true},
		{"Disk&Ven_&Prod_USB_DISK_2.0&Rev_PMAP", Disk{"", "USB_DISK_2.0", "PMAP"}, true},
		{"CdRom&Ven_HL-DT-ST&Prod_DVD", Disk{}, false},
		{"Other", Disk{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDiskID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseMountedDevice(t *testing.T) {
	v, ok := ParseMountedDevice(`_??_USBSTOR#Disk&Ven_SanDisk&Prod_Cruzer&Rev_1.26#4C530001230101115305&0#{53f56307-b6bf-11d0-94f2-00a0c91efb8b}`)
	require.True(t, ok)
	assert.Equal(t, "SanDisk", v.Vendor)
	assert.Equal(t, "Cruzer", v.Product)
	assert.Equal(t, "1.26", v.Revision)
	assert.Equal(t, "4C530001230101115305&0", v.Serial)
	assert.Equal(t, "{53f56307-b6bf-11d0-94f2-00a0c91efb8b}", v.GUID)

	v, ok = ParseMountedDevice(`_??_SCSI#Disk&Ven_NVMe&Prod_Samsung_SSD#4&1a2b3c&0&000000#{53f56307-b6bf-11d0-94f2-00a0c91efb8b}`)
	require.True(t, ok)
	assert.Equal(t, "Samsung_SSD", v.Product)
	assert.Empty(t, v.Revision)
	assert.Equal(t, "4&1a2b3c&0&000000", v.Serial)

	_, ok = ParseMountedDevice("DMIO:ID:")
	assert.False(t, ok)
}

func TestParseVIDPID(t *testing.T) {
	id, ok := ParseVIDPID("VID_046D&PID_C52B")
	require.True(t, ok)
	assert.Equal(t, VIDPID{VID: 0x046d, PID: 0xc52b}, id)
	assert.Equal(t, "VID_046D&PID_C52B", id.String())

	id, ok = ParseVIDPID("Vid_0e0f&Pid_0003&MI_01")
	require.True(t, ok)
	assert.Equal(t, VIDPID{VID: 0x0e0f, PID: 3}, id)

	for _, bad := range []string{"VID_046D", "VID_XYZW&PID_0001", "ROOT_HUB30", "VID_046D&MI_00&PID"} {
		_, ok := ParseVIDPID(bad)
		assert.False(t, ok, bad)
	}
}

func TestParsePortableDevice(t *testing.T) {
	d, ok := ParsePortableDevice(`SWD#WPDBUSENUM#_??_USBSTOR#DISK&VEN_SANDISK&PROD_CRUZER&REV_1.26#4C530001&0#{53f56307-b6bf-11d0-94f2-00a0c91efb8b}`)
	require.True(t, ok)
	assert.Equal(t, PortableDisk, d.Kind)
	assert.Equal(t, "SANDISK", d.Vendor)
	assert.Equal(t, "CRUZER", d.Product)
	assert.Equal(t, "1.26", d.Revision)
	assert.Equal(t, "4C530001&0", d.Serial)

	d, ok = ParsePortableDevice(`SWD#WPDBUSENUM#_??_USBSTOR#DISK&VEN_GENERIC&PROD_FLASH#0001&0#{53f56307-b6bf-11d0-94f2-00a0c91efb8b}`)
	require.True(t, ok)
	assert.Equal(t, PortableDisk, d.Kind)
	assert.Equal(t, "FLASH", d.Product)
	assert.Empty(t, d.Revision)

	d, ok = ParsePortableDevice(`SWD#WPDBUSENUM#{7c3c2f2a-1234-11e9-a8c1-806e6f6e6963}#0000000000100000`)
	require.True(t, ok)
	assert.Equal(t, PortableBus, d.Kind)
	assert.Equal(t, "{7c3c2f2a-1234-11e9-a8c1-806e6f6e6963}", d.GUID)

	d, ok = ParsePortableDevice(`USB#VID_04E8&PID_6860&MS_COMP_MTP&SAMSUNG_ANDROID#6&1234&0&0000#{6ac27878-a6fa-4155-ba85-f98f491d4f33}`)
	require.True(t, ok)
	assert.Equal(t, PortableUSB, d.Kind)
	assert.Equal(t, VIDPID{VID: 0x04e8, PID: 0x6860}, d.VIDPID)

	_, ok = ParsePortableDevice("STORAGE#Volume#1")
	assert.False(t, ok)
}

func TestHex(t *testing.T) {
	v, err := ParseHex16("0x046d")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x046d), v)

	v, err = ParseHex16("C52B")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xc52b), v)

	_, err = ParseHex16("12345")
	assert.Error(t, err, "overflows 16 bits")

	b, err := ParseHex[uint8]("ff")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), b)

	assert.Equal(t, "0x046D", FormatHex16(0x46d))
	assert.Equal(t, "0x0000", FormatHex16(0))
}
