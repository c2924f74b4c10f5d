// Package artifacts extracts forensic records from the hives and event logs
// of a Windows image. Each extractor produces the records of one output
// artifact such as reg_usb or evtx_logons.
package artifacts

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshuapare/artifactkit/internal/image"
	"github.com/joshuapare/artifactkit/internal/logging"
	"github.com/joshuapare/artifactkit/internal/vendors"
	"github.com/joshuapare/artifactkit/pkg/hive"
	"github.com/joshuapare/artifactkit/pkg/types"
)

// Category groups artifacts by the question they answer.
type Category int

const (
	AccountUsage Category = iota + 1
	ExternalDevices
	SystemInfo
)

func (c Category) String() string {
	switch c {
	case AccountUsage:
		return "account-usage"
	case ExternalDevices:
		return "external-devices"
	case SystemInfo:
		return "system-info"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Mode restricts a run to one kind of source.
type Mode int

const (
	ModeAll Mode = iota
	ModeRegistry
	ModeEventLogs
)

func (m Mode) String() string {
	switch m {
	case ModeRegistry:
		return "registry-only"
	case ModeEventLogs:
		return "eventlog-only"
	}
	return "all"
}

// ParseMode accepts the flag spellings of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return ModeAll, nil
	case "registry", "registry-only":
		return ModeRegistry, nil
	case "eventlogs", "eventlog", "eventlog-only", "eventlogs-only":
		return ModeEventLogs, nil
	}
	return ModeAll, fmt.Errorf("unknown mode %q (want all, registry-only or eventlog-only)", s)
}

// Env is what extractors share during a run.
type Env struct {
	Vendors vendors.List
	// Snake converts event data keys to snake_case.
	Snake bool
	Log   *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e == nil || e.Log == nil {
		return logging.Discard()
	}
	return e.Log
}

// RegistryExtractor reads one artifact from a hive.
type RegistryExtractor struct {
	Name     string
	Source   image.Source
	Category Category
	Extract  func(h *hive.Hive, env *Env) ([]any, error)
}

// RegistryExtractors returns every registry extractor in output order.
func RegistryExtractors() []RegistryExtractor {
	return []RegistryExtractor{
		{"reg_usb", image.SystemHive, ExternalDevices, extractUSB},
		{"reg_usbstor", image.SystemHive, ExternalDevices, extractUSBStor},
		{"reg_hid", image.SystemHive, ExternalDevices, extractHID},
		{"reg_scsi", image.SystemHive, ExternalDevices, extractSCSI},
		{"reg_mounted_devices", image.SystemHive, ExternalDevices, extractMountedDevices},
		{"reg_volume_info_cache", image.SoftwareHive, ExternalDevices, extractVolumeInfoCache},
		{"reg_volume_name", image.SoftwareHive, ExternalDevices, extractVolumeName},
		{"reg_computer_name", image.SystemHive, SystemInfo, extractComputerName},
		{"reg_shutdown_times", image.SystemHive, SystemInfo, extractShutdownTime},
		{"reg_current_version", image.SoftwareHive, SystemInfo, extractCurrentVersion},
		{"reg_old_os_versions", image.SystemHive, SystemInfo, extractOldOSVersions},
		{"reg_profile_list", image.SoftwareHive, AccountUsage, extractProfileList},
	}
}

// children returns the subkeys of the key at path. A missing key or an empty
// subkey list yields nil.
func children(h *hive.Hive, path string) ([]hive.Key, error) {
	k, found, err := h.Navigate(path)
	if err != nil || !found {
		return nil, err
	}
	return subkeys(k)
}

func subkeys(k hive.Key) ([]hive.Key, error) {
	keys, _, err := k.Subkeys()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.Path(), err)
	}
	return keys, nil
}

// stringValue reads a string value of k. An absent value reads as "". A
// value stored with another type, or too short for its type, also reads as
// "" and is logged.
func (e *Env) stringValue(k hive.Key, name string) (string, error) {
	v, found, err := k.Value(name)
	if err != nil || !found {
		return "", err
	}
	s, err := v.StringData()
	if err != nil {
		return "", e.malformed(k, v, err)
	}
	return s, nil
}

// dwordValue reads a dword value of k; ok is false when it is absent or not
// a dword.
func (e *Env) dwordValue(k hive.Key, name string) (n uint32, ok bool, err error) {
	v, found, err := k.Value(name)
	if err != nil || !found {
		return 0, false, err
	}
	n, err = v.DwordData()
	if err != nil {
		return 0, false, e.malformed(k, v, err)
	}
	return n, true, nil
}

// qwordValue reads a qword value of k; ok is false when it is absent or not
// a qword.
func (e *Env) qwordValue(k hive.Key, name string) (n uint64, ok bool, err error) {
	v, found, err := k.Value(name)
	if err != nil || !found {
		return 0, false, err
	}
	n, err = v.QwordData()
	if err != nil {
		return 0, false, e.malformed(k, v, err)
	}
	return n, true, nil
}

// malformed logs and drops type and length errors of a single value. Any
// other error is returned with the value's path.
func (e *Env) malformed(k hive.Key, v hive.Value, err error) error {
	kind, _ := types.KindOf(err)
	if kind != types.ErrKindType && kind != types.ErrKindTruncated {
		return fmt.Errorf("%s\\%s: %w", k.Path(), v.Name(), err)
	}
	e.logger().Warn("ignoring malformed value",
		"key", k.Path(), "value", v.Name(), "type", v.Type().String(), "kind", kind.String(), "error", err)
	return nil
}

// devicePropertiesKey holds the install and arrival times of a device
// instance.
const devicePropertiesKey = `Properties\{83da6326-97a6-4088-9453-a1923f573b29}`

// Property subkeys of devicePropertiesKey whose last write time is the
// event time.
const (
	propFirstConnected = "0064"
	propLastConnected  = "0066"
	propLastRemoved    = "0067"
)

// deviceTimes returns the last write times of the requested property
// subkeys of a device instance. Missing keys are nil.
func deviceTimes(instance hive.Key, props ...string) ([]*time.Time, error) {
	out := make([]*time.Time, len(props))
	base, found, err := instance.Subpath(devicePropertiesKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", instance.Path(), err)
	}
	if !found {
		return out, nil
	}
	for i, p := range props {
		k, found, err := base.Subkey(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", base.Path(), err)
		}
		if found {
			t := k.LastWrite()
			out[i] = &t
		}
	}
	return out, nil
}
