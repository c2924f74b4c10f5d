package image

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/artifactkit/pkg/types"
)

func TestLocate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/win/Windows/System32/config/SYSTEM", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/win/Windows/System32/config/software", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/win/Windows/System32/WINEVT/logs/security.evtx", []byte("x"), 0o644))

	img, err := New(fs, "/mnt/win")
	require.NoError(t, err)

	p, err := img.Locate(SystemHive)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/win/Windows/System32/config/SYSTEM", p)

	p, err = img.Locate(SoftwareHive)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/win/Windows/System32/config/software", p)

	p, err = img.Locate(SecurityLog)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/win/Windows/System32/WINEVT/logs/security.evtx", p)

	_, err = img.Locate(SystemLog)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestNewRejectsMissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := New(fs, "/nope")
	assert.True(t, types.IsKind(err, types.ErrKindIO))

	require.NoError(t, afero.WriteFile(fs, "/file", []byte("x"), 0o644))
	_, err = New(fs, "/file")
	assert.True(t, types.IsKind(err, types.ErrKindIO))
}

func TestSourceNames(t *testing.T) {
	assert.Equal(t, "SYSTEM", SystemHive.String())
	assert.Equal(t, "Security.evtx", SecurityLog.String())
	assert.Equal(t, "Windows/System32/winevt/Logs/System.evtx", SystemLog.RelPath())
}
