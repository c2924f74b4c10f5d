// Package testutil builds synthetic hives, event logs and mounted image trees
// for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes data to the slash-separated rel path under dir, creating
// parent directories, and returns the full path.
func WriteFile(t testing.TB, dir, rel string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Image describes the artifact files of a mounted Windows volume. Nil members
// are not written.
type Image struct {
	System      []byte
	Software    []byte
	SystemLog   []byte
	SecurityLog []byte
}

// Image-relative locations of the artifact sources.
const (
	SystemHivePath   = "Windows/System32/config/SYSTEM"
	SoftwareHivePath = "Windows/System32/config/SOFTWARE"
	SystemLogPath    = "Windows/System32/winevt/Logs/System.evtx"
	SecurityLogPath  = "Windows/System32/winevt/Logs/Security.evtx"
)

// Mount writes the image under a fresh temporary directory and returns its
// root.
func (img Image) Mount(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	for rel, data := range map[string][]byte{
		SystemHivePath:   img.System,
		SoftwareHivePath: img.Software,
		SystemLogPath:    img.SystemLog,
		SecurityLogPath:  img.SecurityLog,
	} {
		if data != nil {
			WriteFile(t, root, rel, data)
		}
	}
	return root
}
