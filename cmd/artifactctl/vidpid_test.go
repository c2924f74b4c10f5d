package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/joshuapare/artifactkit/internal/vendors"
)

func TestVidPidCommand(t *testing.T) {
	withGlobals(t)
	quiet = false
	src := t.TempDir()
	text := "idVendor 0x046d Logitech, Inc.\n\nidProduct 0xc52b Unifying Receiver\n"
	if err := os.WriteFile(filepath.Join(src, "logitech.txt"), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "README.md"), []byte("idVendor 0x1 x\n\nidProduct 0x2 y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "vidpid.json")

	out, err := captureOutput(t, func() error { return runVidPid([]string{src, dst}) })
	if err != nil {
		t.Fatalf("runVidPid() error = %v", err)
	}
	assertContains(t, out, []string{"1 vendors and 1 products"})

	l, err := vendors.Load(afero.NewOsFs(), dst)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, p := l.Lookup(0x046D, 0xC52B); v != "Logitech, Inc." || p != "Unifying Receiver" {
		t.Errorf("Lookup = %q, %q", v, p)
	}
}
