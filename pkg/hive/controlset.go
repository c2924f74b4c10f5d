package hive

import (
	"fmt"
	"strings"

	"github.com/joshuapare/artifactkit/pkg/types"
)

// CurrentControlSet is the alias Navigate rewrites to the active control set.
const CurrentControlSet = "CurrentControlSet"

// DefaultControlSet is used when the hive has no usable Select key.
const DefaultControlSet = "ControlSet001"

// ActiveControlSet returns the name of the control set selected by
// Select\Current, for example "ControlSet002". fromSelect is false when the
// hive has no usable Select\Current dword and DefaultControlSet was assumed.
func (h *Hive) ActiveControlSet() (name string, fromSelect bool, err error) {
	h.csOnce.Do(func() {
		h.controlSet, h.csFromSel, h.csErr = h.resolveControlSet()
	})
	return h.controlSet, h.csFromSel, h.csErr
}

// SetControlSet pins the control set used for CurrentControlSet paths. n is
// the numeric suffix, so 2 selects ControlSet002.
func (h *Hive) SetControlSet(n uint32) {
	h.csOnce.Do(func() {})
	h.controlSet, h.csFromSel, h.csErr = ControlSetName(n), true, nil
}

// ControlSetName formats the key name of control set n.
func ControlSetName(n uint32) string {
	return fmt.Sprintf("ControlSet%03d", n)
}

// ResolveControlSet rewrites a leading CurrentControlSet segment of path to
// the active control set.
func (h *Hive) ResolveControlSet(path string) (string, error) {
	segs := splitPath(path)
	if len(segs) == 0 || !strings.EqualFold(segs[0], CurrentControlSet) {
		return path, nil
	}
	cs, _, err := h.ActiveControlSet()
	if err != nil {
		return "", err
	}
	segs[0] = cs
	return strings.Join(segs, `\`), nil
}

func (h *Hive) resolveControlSet() (string, bool, error) {
	root, err := h.Root()
	if err != nil {
		return "", false, err
	}
	sel, found, err := root.Subkey("Select")
	if err != nil {
		return "", false, err
	}
	if !found {
		return DefaultControlSet, false, nil
	}
	v, found, err := sel.Value("Current")
	if err != nil {
		return "", false, err
	}
	if !found {
		return DefaultControlSet, false, nil
	}
	n, err := v.DwordData()
	if types.IsKind(err, types.ErrKindType) || types.IsKind(err, types.ErrKindTruncated) {
		return DefaultControlSet, false, nil
	}
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		return DefaultControlSet, false, nil
	}
	return ControlSetName(n), true, nil
}
