package output

import (
	"bufio"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func readLines(t *testing.T, fs afero.Fs, p string, gz bool) []rec {
	t.Helper()
	f, err := fs.Open(p)
	require.NoError(t, err)
	defer f.Close()

	var sc *bufio.Scanner
	if gz {
		zr, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer zr.Close()
		sc = bufio.NewScanner(zr)
	} else {
		sc = bufio.NewScanner(f)
	}
	var out []rec
	for sc.Scan() {
		var r rec
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestWriteJSONLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/out/results", Options{})
	require.NoError(t, err)

	n, err := s.Write("reg_usb", []any{rec{"a<b", 1}, rec{"c", 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := readLines(t, fs, "/out/results/reg_usb.json", false)
	assert.Equal(t, []rec{{"a<b", 1}, {"c", 2}}, got)

	raw, err := afero.ReadFile(fs, "/out/results/reg_usb.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"a<b"`, "html escaping is off")
}

func TestEmptyWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/out", Options{})
	require.NoError(t, err)

	n, err := s.Write("reg_hid", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	exists, err := afero.Exists(fs, "/out/reg_hid.json")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, s.Manifest().Artifacts)
}

func TestGzip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/out", Options{Gzip: true})
	require.NoError(t, err)

	_, err = s.Write("evtx_logons", []any{rec{"x", 3}})
	require.NoError(t, err)
	assert.Equal(t, []rec{{"x", 3}}, readLines(t, fs, "/out/evtx_logons.json.gz", true))
}

func TestManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/out", Options{})
	require.NoError(t, err)

	_, err = s.Write("reg_usb", []any{rec{"a", 1}})
	require.NoError(t, err)
	_, err = s.Write("evtx_logons", []any{rec{"b", 1}, rec{"c", 2}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := afero.ReadFile(fs, "/out/"+ManifestName)
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, s.RunID().String(), m.RunID)
	assert.False(t, m.Finished.Before(m.Started))
	assert.Equal(t, []Artifact{
		{Name: "evtx_logons", File: "evtx_logons.json", Records: 2},
		{Name: "reg_usb", File: "reg_usb.json", Records: 1},
	}, m.Artifacts)
}
