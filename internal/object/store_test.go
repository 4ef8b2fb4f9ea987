package object

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	lgiterr "lgit/internal/errors"
)

func setupStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "objects"), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestFileStore(t *testing.T) {
	store := setupStore(t)

	t.Run("RoundTrip", func(t *testing.T) {
		content := []byte("hello")

		hash, err := store.Put(content)
		require.NoError(t, err)
		assert.Len(t, hash, HashLen)
		assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", hash)

		got, err := store.Get(hash)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("TwoLevelLayout", func(t *testing.T) {
		hash, err := store.Put([]byte("layout check"))
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(store.root, hash[:2], hash[2:]))
		assert.NoError(t, err)
	})

	t.Run("IdempotentPut", func(t *testing.T) {
		content := []byte("same content")

		first, err := store.Put(content)
		require.NoError(t, err)

		before := blobCount(t, store.root)

		second, err := store.Put(content)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, before, blobCount(t, store.root))
	})

	t.Run("EmptyContent", func(t *testing.T) {
		hash, err := store.Put(nil)
		require.NoError(t, err)

		got, err := store.Get(hash)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Exists", func(t *testing.T) {
		hash, err := store.Put([]byte("present"))
		require.NoError(t, err)

		assert.True(t, store.Exists(hash))
		assert.False(t, store.Exists("0000000000000000000000000000000000000000"))
		assert.False(t, store.Exists(""))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get("ffffffffffffffffffffffffffffffffffffffff")
		require.Error(t, err)
		assert.True(t, lgiterr.IsType(err, lgiterr.ErrorTypeNotFound))
	})
}

func TestDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	hash, err := DigestFile(path)
	require.NoError(t, err)
	assert.Equal(t, Digest([]byte("hello")), hash)

	_, err = DigestFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, lgiterr.IsType(err, lgiterr.ErrorTypeIO))
}

func blobCount(t *testing.T, root string) int {
	t.Helper()

	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}
