package artifacts

import (
	"time"

	"github.com/joshuapare/artifactkit/internal/deviceid"
	"github.com/joshuapare/artifactkit/pkg/hive"
	"github.com/joshuapare/artifactkit/pkg/textenc"
)

// USBEntry is one device instance below Enum\USB.
type USBEntry struct {
	VID                 string    `json:"vid"`
	PID                 string    `json:"pid"`
	VendorName          string    `json:"vendorname"`
	ProductName         string    `json:"productname"`
	SerialNumber        string    `json:"serial_number"`
	ParentIDPrefix      string    `json:"parentidprefix"`
	FriendlyName        string    `json:"friendly_name"`
	LocationInformation string    `json:"location_information"`
	TimeStamp           time.Time `json:"time_stamp"`
}

func extractUSB(h *hive.Hive, env *Env) ([]any, error) {
	devices, err := children(h, `CurrentControlSet\Enum\USB`)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, dev := range devices {
		id, ok := deviceid.ParseVIDPID(dev.Name())
		if !ok {
			env.logger().Debug("skipping usb key", "key", dev.Name())
			continue
		}
		vendor, product := env.Vendors.Lookup(id.VID, id.PID)
		instances, err := subkeys(dev)
		if err != nil {
			return out, err
		}
		for _, inst := range instances {
			e := USBEntry{
				VID:          deviceid.FormatHex16(id.VID),
				PID:          deviceid.FormatHex16(id.PID),
				VendorName:   vendor,
				ProductName:  product,
				SerialNumber: inst.Name(),
				TimeStamp:    inst.LastWrite(),
			}
			if e.ParentIDPrefix, err = env.stringValue(inst, "ParentIdPrefix"); err != nil {
				return out, err
			}
			if e.FriendlyName, err = env.stringValue(inst, "FriendlyName"); err != nil {
				return out, err
			}
			if e.LocationInformation, err = env.stringValue(inst, "LocationInformation"); err != nil {
				return out, err
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// USBStorEntry is one mass storage instance below Enum\USBSTOR.
type USBStorEntry struct {
	TimeStamp      time.Time  `json:"time_stamp"`
	Manufacturer   string     `json:"manufacturer"`
	Title          string     `json:"title"`
	Version        string     `json:"version"`
	SerialNumber   string     `json:"serial_number"`
	DeviceName     string     `json:"device_name"`
	FirstConnected *time.Time `json:"first_connected"`
	LastConnected  *time.Time `json:"last_connected"`
	LastRemoved    *time.Time `json:"last_removed"`
}

func extractUSBStor(h *hive.Hive, env *Env) ([]any, error) {
	devices, err := children(h, `CurrentControlSet\Enum\USBSTOR`)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, dev := range devices {
		disk, ok := deviceid.ParseDiskID(dev.Name())
		if !ok {
			env.logger().Debug("skipping usbstor key", "key", dev.Name())
			continue
		}
		instances, err := subkeys(dev)
		if err != nil {
			return out, err
		}
		for _, inst := range instances {
			name, err := env.stringValue(inst, "FriendlyName")
			if err != nil {
				return out, err
			}
			times, err := deviceTimes(inst, propFirstConnected, propLastConnected, propLastRemoved)
			if err != nil {
				return out, err
			}
			out = append(out, USBStorEntry{
				TimeStamp:      inst.LastWrite(),
				Manufacturer:   disk.Vendor,
				Title:          disk.Product,
				Version:        disk.Revision,
				SerialNumber:   inst.Name(),
				DeviceName:     name,
				FirstConnected: times[0],
				LastConnected:  times[1],
				LastRemoved:    times[2],
			})
		}
	}
	return out, nil
}

// HIDEntry is one human interface device instance below Enum\HID.
type HIDEntry struct {
	FullKeyName    string     `json:"full_key_name"`
	TimeStamp      time.Time  `json:"time_stamp"`
	VendorID       string     `json:"vendor_id"`
	ProductID      string     `json:"product_id"`
	VendorName     string     `json:"vendorname"`
	ProductName    string     `json:"productname"`
	SerialNumber   string     `json:"serialnumber"`
	FirstConnected *time.Time `json:"first_connected"`
	LastConnected  *time.Time `json:"last_connected"`
}

func extractHID(h *hive.Hive, env *Env) ([]any, error) {
	devices, err := children(h, `CurrentControlSet\Enum\HID`)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, dev := range devices {
		id, ok := deviceid.ParseVIDPID(dev.Name())
		if !ok {
			continue
		}
		vendor, product := env.Vendors.Lookup(id.VID, id.PID)
		instances, err := subkeys(dev)
		if err != nil {
			return out, err
		}
		for _, inst := range instances {
			times, err := deviceTimes(inst, propFirstConnected, propLastConnected)
			if err != nil {
				return out, err
			}
			out = append(out, HIDEntry{
				FullKeyName:    dev.Name(),
				TimeStamp:      inst.LastWrite(),
				VendorID:       deviceid.FormatHex16(id.VID),
				ProductID:      deviceid.FormatHex16(id.PID),
				VendorName:     vendor,
				ProductName:    product,
				SerialNumber:   inst.Name(),
				FirstConnected: times[0],
				LastConnected:  times[1],
			})
		}
	}
	return out, nil
}

// SCSIEntry is one disk instance below Enum\SCSI.
type SCSIEntry struct {
	TimeStamp      time.Time  `json:"time_stamp"`
	Manufacturer   string     `json:"manufacturer"`
	Title          string     `json:"title"`
	ParentIDPrefix string     `json:"parentidprefix"`
	DeviceName     string     `json:"device_name"`
	FirstConnected *time.Time `json:"first_connected"`
	LastConnected  *time.Time `json:"last_connected"`
}

func extractSCSI(h *hive.Hive, env *Env) ([]any, error) {
	devices, err := children(h, `CurrentControlSet\Enum\SCSI`)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, dev := range devices {
		disk, ok := deviceid.ParseDiskID(dev.Name())
		if !ok {
			env.logger().Debug("skipping scsi key", "key", dev.Name())
			continue
		}
		instances, err := subkeys(dev)
		if err != nil {
			return out, err
		}
		for _, inst := range instances {
			name, err := env.stringValue(inst, "FriendlyName")
			if err != nil {
				return out, err
			}
			times, err := deviceTimes(inst, propFirstConnected, propLastConnected)
			if err != nil {
				return out, err
			}
			out = append(out, SCSIEntry{
				TimeStamp:      inst.LastWrite(),
				Manufacturer:   disk.Vendor,
				Title:          disk.Product,
				ParentIDPrefix: inst.Name(),
				DeviceName:     name,
				FirstConnected: times[0],
				LastConnected:  times[1],
			})
		}
	}
	return out, nil
}

// MountedDevice is one value of the MountedDevices key. The identity fields
// are filled when the data is a UTF-16 device path.
type MountedDevice struct {
	DeviceName  string `json:"device_name"`
	DeviceData  string `json:"device_data"`
	VendorName  string `json:"vendorname"`
	ProductName string `json:"productname"`
	Revision    string `json:"revision"`
	Serial      string `json:"serial"`
	GUID        string `json:"guid"`
}

func extractMountedDevices(h *hive.Hive, env *Env) ([]any, error) {
	k, found, err := h.Navigate("MountedDevices")
	if err != nil || !found {
		return nil, err
	}
	values, err := k.Values()
	if err != nil {
		return nil, err
	}
	var out []any
	for _, v := range values {
		data, err := v.Data()
		if err != nil {
			env.logger().Warn("unreadable mounted device", "value", v.Name(), "error", err)
			continue
		}
		s, enc := textenc.DecodeBlob(data)
		e := MountedDevice{DeviceName: v.Name(), DeviceData: s}
		if enc == textenc.UTF16LE {
			if vol, ok := deviceid.ParseMountedDevice(s); ok {
				e.VendorName = vol.Vendor
				e.ProductName = vol.Product
				e.Revision = vol.Revision
				e.Serial = vol.Serial
				e.GUID = vol.GUID
			}
		}
		out = append(out, e)
	}
	return out, nil
}

var driveTypes = map[uint32]string{
	1: "NoRootDirectory",
	2: "Removable Storage Device",
	3: "Fixed Disk",
	4: "Network Drive",
	5: "CDRom",
	6: "RAM Disk",
}

// VolumeInfo is one volume remembered by Windows Search.
type VolumeInfo struct {
	Timestamp time.Time `json:"timestamp"`
	DriveName string    `json:"drive_name"`
	VolLabel  string    `json:"vol_label"`
	DriveType string    `json:"drive_type"`
}

func extractVolumeInfoCache(h *hive.Hive, env *Env) ([]any, error) {
	volumes, err := children(h, `Microsoft\Windows Search\VolumeInfoCache`)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, vol := range volumes {
		typ, _, err := env.dwordValue(vol, "DriveType")
		if err != nil {
			return out, err
		}
		label, err := env.stringValue(vol, "VolumeLabel")
		if err != nil {
			return out, err
		}
		out = append(out, VolumeInfo{
			Timestamp: vol.LastWrite(),
			DriveName: vol.Name(),
			VolLabel:  label,
			DriveType: driveTypes[typ],
		})
	}
	return out, nil
}

// PortableDevice is one device below Windows Portable Devices\Devices.
type PortableDevice struct {
	FullKeyName  string    `json:"full_key_name"`
	TimeStamp    time.Time `json:"time_stamp"`
	VendorName   string    `json:"vendorname"`
	ProductName  string    `json:"productname"`
	Version      string    `json:"version"`
	SerialNumber string    `json:"serialnumber"`
	GUID         string    `json:"guid"`
	FriendlyName string    `json:"friendly_name"`
}

func extractVolumeName(h *hive.Hive, env *Env) ([]any, error) {
	devices, err := children(h, `Microsoft\Windows Portable Devices\Devices`)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, dev := range devices {
		pd, ok := deviceid.ParsePortableDevice(dev.Name())
		if !ok {
			env.logger().Debug("skipping portable device key", "key", dev.Name())
			continue
		}
		friendly, err := env.stringValue(dev, "FriendlyName")
		if err != nil {
			return out, err
		}
		e := PortableDevice{
			FullKeyName:  dev.Name(),
			TimeStamp:    dev.LastWrite(),
			FriendlyName: friendly,
		}
		switch pd.Kind {
		case deviceid.PortableDisk:
			e.VendorName = pd.Vendor
			e.ProductName = pd.Product
			e.Version = pd.Revision
			e.SerialNumber = pd.Serial
			e.GUID = pd.GUID
		case deviceid.PortableBus:
			e.GUID = pd.GUID
		case deviceid.PortableUSB:
			e.VendorName, e.ProductName = env.Vendors.Lookup(pd.VIDPID.VID, pd.VIDPID.PID)
		}
		out = append(out, e)
	}
	return out, nil
}
