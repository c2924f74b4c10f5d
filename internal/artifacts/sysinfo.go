package artifacts

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshuapare/artifactkit/internal/buf"
	"github.com/joshuapare/artifactkit/pkg/hive"
	"github.com/joshuapare/artifactkit/pkg/types"
	"github.com/joshuapare/artifactkit/pkg/wintime"
)

// ComputerName is the configured NetBIOS name of the machine.
type ComputerName struct {
	ComputerName string `json:"computer_name"`
}

func extractComputerName(h *hive.Hive, env *Env) ([]any, error) {
	k, found, err := h.Navigate(`CurrentControlSet\Control\ComputerName\ComputerName`)
	if err != nil || !found {
		return nil, err
	}
	name, err := env.stringValue(k, "ComputerName")
	if err != nil {
		return nil, err
	}
	return []any{ComputerName{ComputerName: name}}, nil
}

// ShutdownTime is the last clean shutdown of the system.
type ShutdownTime struct {
	ShutdownTime time.Time `json:"shutdown_time"`
}

func extractShutdownTime(h *hive.Hive, env *Env) ([]any, error) {
	k, found, err := h.Navigate(`CurrentControlSet\Control\Windows`)
	if err != nil || !found {
		return nil, err
	}
	v, found, err := k.Value("ShutdownTime")
	if err != nil || !found {
		return nil, err
	}
	data, err := v.Data()
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, &types.Error{
			Kind: types.ErrKindTruncated,
			Msg:  fmt.Sprintf("%s\\ShutdownTime: %d bytes, want 8", k.Path(), len(data)),
			Err:  types.ErrTruncated,
		}
	}
	return []any{ShutdownTime{ShutdownTime: wintime.Convert(buf.U64LE(data))}}, nil
}

// OSVersion describes an installed or previously installed Windows build.
type OSVersion struct {
	// SourceOS names the Setup subkey of a replaced installation.
	SourceOS               string     `json:"source_os,omitempty"`
	CurrentBuildNumber     string     `json:"current_build_number"`
	EditionID              string     `json:"edition_id"`
	InstallationType       string     `json:"installation_type"`
	InstallDate            *time.Time `json:"install_date"`
	InstallTime            *time.Time `json:"install_time"`
	PathName               string     `json:"path_name"`
	ProductID              string     `json:"product_id"`
	ProductName            string     `json:"product_name"`
	RegisteredOrganization string     `json:"registered_organization"`
	RegisteredOwner        string     `json:"registered_owner"`
	SoftwareType           string     `json:"software_type"`
}

func readOSVersion(env *Env, k hive.Key) (OSVersion, error) {
	var (
		v   OSVersion
		err error
	)
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"CurrentBuildNumber", &v.CurrentBuildNumber},
		{"EditionID", &v.EditionID},
		{"InstallationType", &v.InstallationType},
		{"PathName", &v.PathName},
		{"ProductId", &v.ProductID},
		{"ProductName", &v.ProductName},
		{"RegisteredOrganization", &v.RegisteredOrganization},
		{"RegisteredOwner", &v.RegisteredOwner},
		{"SoftwareType", &v.SoftwareType},
	} {
		if *f.dst, err = env.stringValue(k, f.name); err != nil {
			return v, err
		}
	}

	secs, ok, err := env.dwordValue(k, "InstallDate")
	if err != nil {
		return v, err
	}
	if ok {
		t := wintime.FromUnix(secs)
		v.InstallDate = &t
	}
	ticks, ok, err := env.qwordValue(k, "InstallTime")
	if err != nil {
		return v, err
	}
	if ok {
		t := wintime.Convert(ticks)
		v.InstallTime = &t
	}
	return v, nil
}

func extractCurrentVersion(h *hive.Hive, env *Env) ([]any, error) {
	k, found, err := h.Navigate(`Microsoft\Windows NT\CurrentVersion`)
	if err != nil || !found {
		return nil, err
	}
	v, err := readOSVersion(env, k)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

// extractOldOSVersions reads the "Source OS (Updated on ...)" keys that
// feature updates leave below SYSTEM\Setup.
func extractOldOSVersions(h *hive.Hive, env *Env) ([]any, error) {
	keys, err := children(h, "Setup")
	if err != nil {
		return nil, err
	}
	var out []any
	for _, k := range keys {
		if !strings.HasPrefix(k.Name(), "Source OS") {
			continue
		}
		v, err := readOSVersion(env, k)
		if err != nil {
			return out, err
		}
		v.SourceOS = k.Name()
		out = append(out, v)
	}
	return out, nil
}

// Profile is one local or domain profile of ProfileList.
type Profile struct {
	Timestamp        time.Time `json:"timestamp"`
	SID              string    `json:"sid"`
	ProfileImagePath string    `json:"profile_image_path"`
}

func extractProfileList(h *hive.Hive, env *Env) ([]any, error) {
	keys, err := children(h, `Microsoft\Windows NT\CurrentVersion\ProfileList`)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, k := range keys {
		p, err := env.stringValue(k, "ProfileImagePath")
		if err != nil {
			return out, err
		}
		out = append(out, Profile{Timestamp: k.LastWrite(), SID: k.Name(), ProfileImagePath: p})
	}
	return out, nil
}
