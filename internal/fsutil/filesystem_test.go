package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystemCommitOnClose(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("out/run1", 0o755))
	assert.True(t, m.Exists("out"))
	assert.True(t, m.Exists("out/run1"))

	w, err := m.Create("out/run1/CH1_I.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte{1, 2})
	require.NoError(t, err)
	_, err = w.Write([]byte{3})
	require.NoError(t, err)

	data, err := m.ReadFile("out/run1/CH1_I.bin")
	require.NoError(t, err)
	assert.Empty(t, data, "data is only visible after Close")

	require.NoError(t, w.Close())
	data, err = m.ReadFile("out/run1/CH1_I.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	assert.ErrorIs(t, w.Close(), fs.ErrClosed)
	_, err = w.Write([]byte{4})
	assert.ErrorIs(t, err, fs.ErrClosed)
}

func TestMemoryFileSystemReadMissing(t *testing.T) {
	m := NewMemoryFileSystem()
	_, err := m.ReadFile("nope.bin")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, m.Exists("nope.bin"))
}

func TestMemoryFileSystemGlobAndFiles(t *testing.T) {
	m := NewMemoryFileSystem()
	for _, name := range []string{"r/CH2_Q.bin", "r/CH1_I.bin", "r/CH1_Q.bin", "other/x.bin"} {
		w, err := m.Create(name)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	got, err := m.Glob("r/CH1_*.bin")
	require.NoError(t, err)
	assert.Equal(t, []string{"r/CH1_I.bin", "r/CH1_Q.bin"}, got)

	assert.Equal(t, []string{"r/CH1_I.bin", "r/CH1_Q.bin", "r/CH2_Q.bin"}, m.Files("r"))
}

func TestMemoryFileSystemInjectedFailure(t *testing.T) {
	m := NewMemoryFileSystem()
	m.FailCreateAfter = 2

	for i := 0; i < 2; i++ {
		w, err := m.Create(filepath.Join("d", string(rune('a'+i))))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	_, err := m.Create("d/c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInjected))
}

func TestOSFileSystem(t *testing.T) {
	dir := t.TempDir()
	var fsys FileSystem = OSFileSystem{}

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, fsys.MkdirAll(sub, 0o755))
	assert.True(t, fsys.Exists(sub))

	w, err := fsys.Create(filepath.Join(sub, "f.bin"))
	require.NoError(t, err)
	_, err = w.Write([]byte("iq"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := fsys.ReadFile(filepath.Join(sub, "f.bin"))
	require.NoError(t, err)
	assert.Equal(t, "iq", string(data))

	matches, err := fsys.Glob(filepath.Join(sub, "*.bin"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
