package wake

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadStateMissingFileDefaultsDisabled(t *testing.T) {
	st, err := ReadState(filepath.Join(t.TempDir(), "voxd-wakeword.json"))
	require.NoError(t, err)
	require.False(t, st.Enabled)
}

func TestWriteThenReadStateRoundTrips(t *testing.T) {
	path := StatePath(t.TempDir())

	require.NoError(t, WriteState(path, State{Enabled: true}, 1000))

	st, err := ReadState(path)
	require.NoError(t, err)
	require.True(t, st.Enabled)
	require.Equal(t, int64(1000), st.UpdatedAt)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestToggleFlipsState(t *testing.T) {
	path := StatePath(t.TempDir())

	enabled, err := Toggle(path, 100)
	require.NoError(t, err)
	require.True(t, enabled)

	enabled, err = Toggle(path, 200)
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestReadStateCorruptFileDefaultsDisabled(t *testing.T) {
	path := StatePath(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	st, err := ReadState(path)
	require.NoError(t, err)
	require.False(t, st.Enabled)
}

func TestStateDirUsesXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdgstate")
	dir, err := StateDir()
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdgstate/voxd", dir)
}
