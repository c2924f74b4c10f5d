package hive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/artifactkit/internal/format"
	"github.com/joshuapare/artifactkit/internal/testutil"
	"github.com/joshuapare/artifactkit/pkg/hive"
	"github.com/joshuapare/artifactkit/pkg/types"
	"github.com/joshuapare/artifactkit/pkg/wintime"
)

func openHive(t *testing.T, b *testutil.HiveBuilder) *hive.Hive {
	t.Helper()
	h, err := hive.OpenBytes(b.Bytes())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestNavigate(t *testing.T) {
	b := testutil.NewHive()
	c := b.Root().Key("A", "B", "C")
	c.LastWrite = 133000000000000000
	h := openHive(t, b)

	k, found, err := h.Navigate(`A\B\C`)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "C", k.Name())
	assert.Equal(t, `A\B\C`, k.Path())
	assert.Equal(t, uint64(133000000000000000), k.LastWriteRaw())
	assert.True(t, k.LastWrite().Equal(wintime.Convert(133000000000000000)))

	k, found, err = h.Navigate(`\a\b\c\`)
	require.NoError(t, err)
	require.True(t, found, "separators and case are ignored")
	assert.Equal(t, "C", k.Name())
}

func TestNavigateMissingIntermediate(t *testing.T) {
	b := testutil.NewHive()
	b.Root().Key("A", "B", "C")
	h := openHive(t, b)

	k, found, err := h.Navigate(`A\X\C`)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, k.Name())
}

func TestNavigateEmptyIsRoot(t *testing.T) {
	h := openHive(t, testutil.NewHive())
	k, found, err := h.Navigate("")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ROOT", k.Name())
	assert.Empty(t, k.Path())
}

func TestSubpath(t *testing.T) {
	b := testutil.NewHive()
	b.Root().Key("Enum", "USB", "VID_046D&PID_C52B")
	h := openHive(t, b)

	enum, found, err := h.Navigate("Enum")
	require.NoError(t, err)
	require.True(t, found)
	k, found, err := enum.Subpath(`usb\vid_046d&pid_c52b`)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `Enum\USB\VID_046D&PID_C52B`, k.Path())
}

func TestSubkeys(t *testing.T) {
	b := testutil.NewHive()
	usb := b.Root().Key("USB")
	usb.ListKind = "ri"
	for _, n := range []string{"one", "two", "three"} {
		usb.Add(n)
	}
	h := openHive(t, b)

	k, _, err := h.Navigate("USB")
	require.NoError(t, err)
	subs, found, err := k.Subkeys()
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, subs, 3)
	assert.Equal(t, `USB\three`, subs[2].Path())

	leaf := subs[0]
	subs, found, err = leaf.Subkeys()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, subs)
}

func TestValueLookup(t *testing.T) {
	b := testutil.NewHive()
	k := b.Root().Key("Control", "ComputerName", "ComputerName")
	k.SetString("ComputerName", "WS01")
	h := openHive(t, b)

	key, _, err := h.Navigate(`Control\ComputerName\ComputerName`)
	require.NoError(t, err)

	v, found, err := key.Value("computername")
	require.NoError(t, err)
	require.True(t, found)
	s, err := v.StringData()
	require.NoError(t, err)
	assert.Equal(t, "WS01", s)
	assert.Equal(t, types.REG_SZ, v.Type())

	_, found, err = key.Value("Missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = v.DwordData()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	assert.True(t, types.IsKind(err, types.ErrKindType))
}

func TestValueDecoders(t *testing.T) {
	b := testutil.NewHive()
	k := b.Root()
	k.SetDword("Dword", 0x11223344)
	k.Set("DwordBE", uint32(types.REG_DWORD_BE), []byte{0x11, 0x22, 0x33, 0x44})
	k.SetQword("Qword", 0x0102030405060708)
	k.Set("Multi", uint32(types.REG_MULTI_SZ), append(append(testutil.UTF16Z("a"), testutil.UTF16Z("bc")...), 0, 0))
	k.Set("Expand", uint32(types.REG_EXPAND_SZ), append(testutil.UTF16Z(`%SystemRoot%`), 'x', 0))
	k.Set("ShortDword", uint32(types.REG_DWORD), []byte{1, 2})
	k.SetBinary("Bin", []byte{0xde, 0xad, 0xbe, 0xef, 0x01})
	h := openHive(t, b)
	root, err := h.Root()
	require.NoError(t, err)

	get := func(name string) hive.Value {
		v, found, err := root.Value(name)
		require.NoError(t, err)
		require.True(t, found, name)
		return v
	}

	d, err := get("Dword").DwordData()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x11223344), d)

	d, err = get("DwordBE").DwordData()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x11223344), d)

	q, err := get("Qword").QwordData()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), q)

	m, err := get("Multi").MultiStringData()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "bc"}, m)

	s, err := get("Expand").StringData()
	require.NoError(t, err)
	assert.Equal(t, `%SystemRoot%`, s)

	_, err = get("ShortDword").DwordData()
	assert.ErrorIs(t, err, types.ErrTruncated)

	raw, err := get("Bin").Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef, 0x01}, raw)

	_, err = get("Bin").QwordData()
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	_, err = get("Bin").StringData()
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	_, err = get("Bin").MultiStringData()
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	vals, err := root.Values()
	require.NoError(t, err)
	require.Len(t, vals, 7)
	assert.Equal(t, "Dword", vals[0].Name())
	assert.Equal(t, 5, vals[6].Size())
}

func TestWalk(t *testing.T) {
	b := testutil.NewHive()
	b.Root().Key("A", "B")
	b.Root().Key("A", "C")
	b.Root().Key("D")
	h := openHive(t, b)
	root, err := h.Root()
	require.NoError(t, err)

	var seen []string
	err = root.Walk(func(k hive.Key, depth int) error {
		seen = append(seen, k.Path())
		if k.Name() == "A" {
			return hive.SkipKey
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "A", "D"}, seen)
}

func TestWalkCycle(t *testing.T) {
	b := testutil.NewHive()
	a := b.Root().Add("A")
	a.Add("B")
	data := b.Bytes()

	// Point A's subkey list at the root's list, so A lists itself.
	root := format.HeaderSize + int(b.Root().Offset) + format.CellHeaderSize
	nodeA := format.HeaderSize + int(a.Offset) + format.CellHeaderSize
	copy(data[nodeA+format.NKSubkeyListOffset:], data[root+format.NKSubkeyListOffset:root+format.NKSubkeyListOffset+4])
	h, err := hive.OpenBytes(data)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	rk, err := h.Root()
	require.NoError(t, err)
	var seen []string
	err = rk.Walk(func(k hive.Key, depth int) error {
		seen = append(seen, k.Path())
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCorrupt)
	assert.Equal(t, []string{"", "A"}, seen)
}

func TestOpenFile(t *testing.T) {
	b := testutil.NewHive()
	b.Root().Key("Select")
	path := testutil.WriteFile(t, t.TempDir(), "SYSTEM", b.Bytes())

	h, err := hive.Open(path)
	require.NoError(t, err)
	defer h.Close()
	info := h.Info()
	assert.Equal(t, uint32(1), info.MajorVersion)
	assert.False(t, info.Dirty)

	_, err = hive.Open(path + ".nope")
	assert.True(t, types.IsKind(err, types.ErrKindIO))

	bad := testutil.WriteFile(t, t.TempDir(), "SOFTWARE", []byte("not a hive at all"))
	_, err = hive.Open(bad)
	assert.ErrorIs(t, err, types.ErrNotHive)
}
