// Package image locates artifact files under the root of a mounted Windows
// volume.
package image

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/joshuapare/artifactkit/pkg/types"
)

// Source identifies one artifact file of a Windows installation.
type Source int

const (
	SystemHive Source = iota
	SoftwareHive
	SystemLog
	SecurityLog
)

var relPaths = [...]string{
	SystemHive:   "Windows/System32/config/SYSTEM",
	SoftwareHive: "Windows/System32/config/SOFTWARE",
	SystemLog:    "Windows/System32/winevt/Logs/System.evtx",
	SecurityLog:  "Windows/System32/winevt/Logs/Security.evtx",
}

func (s Source) String() string {
	switch s {
	case SystemHive:
		return "SYSTEM"
	case SoftwareHive:
		return "SOFTWARE"
	case SystemLog:
		return "System.evtx"
	case SecurityLog:
		return "Security.evtx"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// RelPath returns the canonical image-relative location of s.
func (s Source) RelPath() string { return relPaths[s] }

// Image is a mounted volume.
type Image struct {
	fs   afero.Fs
	root string
}

// New returns the image mounted at root on fs.
func New(fs afero.Fs, root string) (*Image, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: "image root " + root, Err: err}
	}
	if !info.IsDir() {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: "image root " + root + " is not a directory"}
	}
	return &Image{fs: fs, root: root}, nil
}

// Fs returns the file system the image lives on.
func (img *Image) Fs() afero.Fs { return img.fs }

// Root returns the mount point.
func (img *Image) Root() string { return img.root }

// Locate resolves s below the image root. Path segments match
// case-insensitively, since images mounted from NTFS on a case-sensitive
// system keep the on-disk spelling. A missing file is a NotFound error.
func (img *Image) Locate(s Source) (string, error) {
	cur := img.root
	for _, seg := range strings.Split(s.RelPath(), "/") {
		next, err := img.child(cur, seg)
		if err != nil {
			return "", err
		}
		if next == "" {
			return "", &types.Error{
				Kind: types.ErrKindNotFound,
				Msg:  fmt.Sprintf("%s not found below %s", s.RelPath(), img.root),
				Err:  types.ErrNotFound,
			}
		}
		cur = next
	}
	return cur, nil
}

func (img *Image) child(dir, name string) (string, error) {
	exact := path.Join(dir, name)
	if _, err := img.fs.Stat(exact); err == nil {
		return exact, nil
	} else if !os.IsNotExist(err) {
		return "", &types.Error{Kind: types.ErrKindIO, Msg: "stat " + exact, Err: err}
	}
	entries, err := afero.ReadDir(img.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &types.Error{Kind: types.ErrKindIO, Msg: "read " + dir, Err: err}
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), name) {
			return path.Join(dir, e.Name()), nil
		}
	}
	return "", nil
}
