package hive

import (
	"strings"
	"sync"
	"time"

	"github.com/joshuapare/artifactkit/internal/reader"
	"github.com/joshuapare/artifactkit/pkg/wintime"
)

// Hive is an open registry hive. It is read-only and safe for concurrent use.
type Hive struct {
	r *reader.Reader

	csOnce     sync.Once
	controlSet string
	csFromSel  bool
	csErr      error
}

// Open maps the hive file at path.
func Open(path string) (*Hive, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	return &Hive{r: r}, nil
}

// OpenBytes reads a hive held in memory.
func OpenBytes(b []byte) (*Hive, error) {
	r, err := reader.OpenBytes(b)
	if err != nil {
		return nil, err
	}
	return &Hive{r: r}, nil
}

// Close releases the file mapping. Keys and values obtained from the hive
// must not be used afterwards.
func (h *Hive) Close() error {
	return h.r.Close()
}

// Info summarises the base block.
type Info struct {
	MajorVersion uint32
	MinorVersion uint32
	LastWrite    time.Time
	Dirty        bool
}

// Info returns header metadata.
func (h *Hive) Info() Info {
	hd := h.r.Header()
	return Info{
		MajorVersion: hd.MajorVersion,
		MinorVersion: hd.MinorVersion,
		LastWrite:    wintime.Convert(hd.LastWriteRaw),
		Dirty:        hd.Dirty(),
	}
}

// Root returns the root key.
func (h *Hive) Root() (Key, error) {
	return h.key(h.r.RootOffset(), "")
}

// Navigate resolves a backslash-separated path from the root. Leading,
// trailing and doubled separators are ignored.
func (h *Hive) Navigate(path string) (Key, bool, error) {
	root, err := h.Root()
	if err != nil {
		return Key{}, false, err
	}
	path, err = h.ResolveControlSet(path)
	if err != nil {
		return Key{}, false, err
	}
	return root.walk(splitPath(path))
}

func (h *Hive) key(off uint32, parent string) (Key, error) {
	nk, err := h.r.NK(off)
	if err != nil {
		return Key{}, err
	}
	name, err := reader.KeyName(nk)
	if err != nil {
		return Key{}, err
	}
	p := name
	if parent != "" {
		p = parent + `\` + name
	} else if off == h.r.RootOffset() {
		p = ""
	}
	return Key{h: h, off: off, nk: nk, name: name, path: p}, nil
}

func splitPath(path string) []string {
	parts := strings.Split(path, `\`)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
