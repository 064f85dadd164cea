package storage

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageWriteAtomicReplacesFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store, err := NewStorage(fsys, "/state")
	require.NoError(t, err)

	require.NoError(t, store.WriteAtomic("schedule.json", []byte("first"), 0o644))
	require.NoError(t, store.WriteAtomic("schedule.json", []byte("second"), 0o600))

	data, err := store.Read("schedule.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := fsys.Stat("/state/schedule.json")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := afero.ReadDir(fsys, "/state")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStorageReadMissing(t *testing.T) {
	store, err := NewStorage(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)

	_, err = store.Read("absent.json")
	assert.ErrorIs(t, err, ErrNotExist)
	require.NoError(t, store.Delete("absent.json"))
}

func TestStoragePath(t *testing.T) {
	store, err := NewStorage(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)
	assert.Equal(t, "/state/cookies.json", store.Path("cookies.json"))
	assert.Equal(t, "/etc/cookies.json", store.Path("/etc/cookies.json"))
}
