package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/breedchat/internal/imagestore"
)

func TestStoreSaveAndGet(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake png data")

	key, err := store.Save(ctx, "image/png", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, key)

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/png", mimeType)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestStoreKeysAreUnique(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	a, err := store.Save(ctx, "image/jpeg", bytes.NewReader([]byte("a")))
	require.NoError(t, err)
	b, err := store.Save(ctx, "image/jpeg", bytes.NewReader([]byte("b")))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStoreDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Save(ctx, "image/jpeg", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, imagestore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), imagestore.ErrNotFound)
}

func TestStoreNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "0b6f2c3e-8a1d-4c5e-9f70-2d4b6a8c0e12.jpg")
	assert.ErrorIs(t, err, imagestore.ErrNotFound)
}

func TestStoreUnknownTypeSavedAsJPEG(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Save(ctx, "application/octet-stream", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Regexp(t, `\.jpg$`, key)

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "image/jpeg", mimeType)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestStoreSaveFailureLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "image/png", failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreRejectsForeignKeys(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{
		"../../etc/passwd", "..", "a/b.jpg", "",
		"nonexistent.jpg",
		"0b6f2c3e-8a1d-4c5e-9f70-2d4b6a8c0e12.exe",
		"../0b6f2c3e-8a1d-4c5e-9f70-2d4b6a8c0e12.jpg",
	} {
		_, _, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, imagestore.ErrInvalidKey, key)
	}
}
