package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	data := []byte("hello world, this is a test blob for veclust")
	require.NoError(t, store.Put(ctx, "models/a.vclm", data))
	require.NoError(t, store.Put(ctx, "models/b.vclm", []byte("b")))
	require.NoError(t, store.Put(ctx, "other.bin", []byte("c")))

	got, err := store.Get(ctx, "models/a.vclm")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Mutating the returned slice must not affect the store.
	got[0] = 'X'
	again, err := store.Get(ctx, "models/a.vclm")
	require.NoError(t, err)
	assert.Equal(t, data, again)

	// Overwrite
	require.NoError(t, store.Put(ctx, "models/b.vclm", []byte("bb")))
	got, err = store.Get(ctx, "models/b.vclm")
	require.NoError(t, err)
	assert.Equal(t, []byte("bb"), got)

	names, err := store.List(ctx, "models/")
	require.NoError(t, err)
	assert.Equal(t, []string{"models/a.vclm", "models/b.vclm"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Delete(ctx, "models/a.vclm"))
	require.NoError(t, store.Delete(ctx, "models/a.vclm"))

	_, err = store.Get(ctx, "models/a.vclm")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_Layout(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "nested/dir/model.vclm", []byte("x")))

	_, err := os.Stat(filepath.Join(tmpDir, "nested", "dir", "model.vclm"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(tmpDir, "nested", "dir"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be renamed away")
}

func TestLocalStore_InvalidName(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../escape", "/abs"} {
		err := store.Put(ctx, name, []byte("x"))
		assert.Error(t, err, name)
	}
}

func TestLocalStore_MissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Get(context.Background(), "m")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, store := range []Store{NewMemoryStore(), NewLocalStore(t.TempDir())} {
		assert.ErrorIs(t, store.Put(ctx, "x", nil), context.Canceled)
		_, err := store.Get(ctx, "x")
		assert.ErrorIs(t, err, context.Canceled)
	}
}
