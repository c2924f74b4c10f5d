package hive

import (
	"errors"
	"fmt"
	"time"

	"github.com/joshuapare/artifactkit/internal/format"
	"github.com/joshuapare/artifactkit/internal/reader"
	"github.com/joshuapare/artifactkit/pkg/types"
	"github.com/joshuapare/artifactkit/pkg/wintime"
)

// Key is a registry key. The zero Key is not usable.
type Key struct {
	h    *Hive
	off  uint32
	nk   format.NK
	name string
	path string
}

// Name returns the key's own name.
func (k Key) Name() string { return k.name }

// Path returns the backslash-separated path from the root, "" for the root.
func (k Key) Path() string { return k.path }

// LastWriteRaw returns the last write FILETIME as stored.
func (k Key) LastWriteRaw() uint64 { return k.nk.LastWriteRaw }

// LastWrite returns the last write time in UTC.
func (k Key) LastWrite() time.Time { return wintime.Convert(k.nk.LastWriteRaw) }

// SubkeyCount returns the number of subkeys the key declares.
func (k Key) SubkeyCount() int { return int(k.nk.SubkeyCount) }

// ValueCount returns the number of values the key declares.
func (k Key) ValueCount() int { return int(k.nk.ValueCount) }

// Class returns the key's class name, usually empty.
func (k Key) Class() (string, error) { return k.h.r.Class(k.nk) }

// Subpath resolves a backslash-separated path relative to k.
func (k Key) Subpath(path string) (Key, bool, error) {
	return k.walk(splitPath(path))
}

func (k Key) walk(segs []string) (Key, bool, error) {
	cur := k
	for _, seg := range segs {
		next, found, err := cur.Subkey(seg)
		if err != nil || !found {
			return Key{}, false, err
		}
		cur = next
	}
	return cur, true, nil
}

// Subkey returns the direct child called name.
func (k Key) Subkey(name string) (Key, bool, error) {
	off, found, err := k.h.r.Child(k.nk, name)
	if err != nil || !found {
		return Key{}, false, err
	}
	child, err := k.h.key(off, k.path)
	if err != nil {
		return Key{}, false, err
	}
	return child, true, nil
}

// Subkeys returns every child in on-disk order. found is false when the key
// has no subkey list at all.
func (k Key) Subkeys() ([]Key, bool, error) {
	if !k.nk.HasSubkeys() {
		return nil, false, nil
	}
	offs, err := k.h.r.Subkeys(k.nk)
	if err != nil {
		return nil, false, err
	}
	out := make([]Key, 0, len(offs))
	for _, off := range offs {
		child, err := k.h.key(off, k.path)
		if err != nil {
			return nil, false, err
		}
		out = append(out, child)
	}
	return out, true, nil
}

// Value returns the value called name; "" selects the default value.
func (k Key) Value(name string) (Value, bool, error) {
	vk, found, err := k.h.r.FindValue(k.nk, name)
	if err != nil || !found {
		return Value{}, false, err
	}
	n, err := reader.ValueName(vk)
	if err != nil {
		return Value{}, false, err
	}
	return Value{h: k.h, vk: vk, name: n}, true, nil
}

// Values returns every value of the key in on-disk order.
func (k Key) Values() ([]Value, error) {
	offs, err := k.h.r.Values(k.nk)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, len(offs))
	for _, off := range offs {
		vk, err := k.h.r.VK(off)
		if err != nil {
			return nil, err
		}
		n, err := reader.ValueName(vk)
		if err != nil {
			return nil, err
		}
		out = append(out, Value{h: k.h, vk: vk, name: n})
	}
	return out, nil
}

// Walk calls fn for k and every descendant, depth first. depth is 0 for k.
// Returning SkipKey from fn skips the key's children. A key reached twice
// stops the walk with a Corrupt error.
func (k Key) Walk(fn func(key Key, depth int) error) error {
	return k.walkTree(fn, 0, make(map[uint32]struct{}))
}

func (k Key) walkTree(fn func(Key, int) error, depth int, visited map[uint32]struct{}) error {
	if _, seen := visited[k.off]; seen {
		return &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("key %q at %#x reached twice", k.path, k.off),
			Err:  types.ErrCorrupt,
		}
	}
	visited[k.off] = struct{}{}
	if err := fn(k, depth); err != nil {
		if errors.Is(err, SkipKey) {
			return nil
		}
		return err
	}
	children, _, err := k.Subkeys()
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := c.walkTree(fn, depth+1, visited); err != nil {
			return err
		}
	}
	return nil
}
