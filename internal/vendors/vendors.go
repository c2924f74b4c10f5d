// Package vendors maps USB vendor and product ids to names.
//
// The list is stored as JSON keyed by the decimal id:
//
//	{"1133": {"name": "Logitech, Inc.", "vid": 1133,
//	          "devices": {"50475": {"did": 50475, "name": "Unifying Receiver"}}}}
package vendors

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// Device is a product of a vendor.
type Device struct {
	DID  uint16  `json:"did"`
	Name *string `json:"name"`
}

// Vendor is one vendor entry.
type Vendor struct {
	Name    *string           `json:"name"`
	VID     uint16            `json:"vid"`
	Devices map[uint16]Device `json:"devices"`
}

// List is keyed by vendor id.
type List map[uint16]Vendor

// Lookup returns the vendor and product names for an id pair. Unknown ids
// yield empty names.
func (l List) Lookup(vid, pid uint16) (vendor, product string) {
	v, ok := l[vid]
	if !ok {
		return "", ""
	}
	if v.Name != nil {
		vendor = *v.Name
	}
	if d, ok := v.Devices[pid]; ok && d.Name != nil {
		product = *d.Name
	}
	return vendor, product
}

func (l List) add(vid uint16, vendorName string, pid uint16, productName string) {
	v, ok := l[vid]
	if !ok {
		v = Vendor{Name: &vendorName, VID: vid, Devices: map[uint16]Device{}}
	}
	v.Devices[pid] = Device{DID: pid, Name: &productName}
	l[vid] = v
}

// Load reads a vendor list file from fs.
func Load(fs afero.Fs, path string) (List, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read vendor list: %w", err)
	}
	return Parse(data)
}

// Parse decodes a vendor list document. Entries whose ids do not fit 16 bits
// are rejected.
func Parse(data []byte) (List, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("vendor list is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("vendor list must be a JSON object")
	}

	list := List{}
	var perr error
	root.ForEach(func(key, value gjson.Result) bool {
		vid, err := parseID(key.String())
		if err != nil {
			perr = fmt.Errorf("vendor %q: %w", key.String(), err)
			return false
		}
		v := Vendor{VID: vid, Devices: map[uint16]Device{}}
		if n := value.Get("name"); n.Exists() && n.Type != gjson.Null {
			s := n.String()
			v.Name = &s
		}
		value.Get("devices").ForEach(func(dkey, dvalue gjson.Result) bool {
			did, err := parseID(dkey.String())
			if err != nil {
				perr = fmt.Errorf("vendor %q device %q: %w", key.String(), dkey.String(), err)
				return false
			}
			d := Device{DID: did}
			if n := dvalue.Get("name"); n.Exists() && n.Type != gjson.Null {
				s := n.String()
				d.Name = &s
			}
			v.Devices[did] = d
			return true
		})
		if perr != nil {
			return false
		}
		list[vid] = v
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return list, nil
}

func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	return uint16(v), err
}

// Save writes the list as JSON to path on fs.
func Save(fs afero.Fs, path string, l List) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
