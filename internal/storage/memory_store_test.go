package storage_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laurinneff/passwd.mgr/internal/storage"
)

var (
	_ storage.BlobStore = (*storage.LocalStore)(nil)
	_ storage.BlobStore = (*storage.MemoryStore)(nil)
)

func TestMemoryStore(t *testing.T) {
	store := storage.NewMemoryStore()

	_, err := store.Read("db")
	assert.ErrorIs(t, err, storage.ErrFileNotFound)

	data := []byte("sealed")
	require.NoError(t, store.Create("db", data, 0600))
	assert.ErrorIs(t, store.Create("db", data, 0600), storage.ErrFileExists)

	data[0] = 'X'
	got, err := store.Read("db")
	require.NoError(t, err)
	assert.Equal(t, "sealed", string(got), "store keeps its own copy")

	info, err := store.Stat("db")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode)
	assert.Equal(t, int64(6), info.Size)

	require.NoError(t, store.Write("db", []byte("v2"), 0600))
	got, err = store.Read("db")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	require.NoError(t, store.Delete("db"))
	exists, err := store.Exists("db")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_WriteErr(t *testing.T) {
	store := storage.NewMemoryStore()
	store.WriteErr = assert.AnError

	assert.ErrorIs(t, store.Write("db", nil, 0600), assert.AnError)
	assert.ErrorIs(t, store.Create("db", nil, 0600), assert.AnError)
	assert.Equal(t, 0, store.Len())
}
