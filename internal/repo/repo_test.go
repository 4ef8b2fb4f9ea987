package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	t.Setenv("LOGNAME", "tester")
	dir := t.TempDir()

	already, err := Init(dir, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, already)

	root := filepath.Join(dir, Dir)
	for _, sub := range []string{"objects", "commits", "snapshots"} {
		info, err := os.Stat(filepath.Join(root, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(filepath.Join(root, sub))
		require.NoError(t, err)
		assert.Empty(t, entries)
	}

	indexData, err := os.ReadFile(filepath.Join(root, "index"))
	require.NoError(t, err)
	assert.Empty(t, indexData)

	configData, err := os.ReadFile(filepath.Join(root, "config"))
	require.NoError(t, err)
	assert.Equal(t, "tester", string(configData))

	already, err = Init(dir, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, already)
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, zap.NewNop())
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	root, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	_, err = Find(t.TempDir())
	assert.Error(t, err)
}

func TestOpenAndAuthor(t *testing.T) {
	t.Setenv("LOGNAME", "")
	dir := t.TempDir()
	_, err := Init(dir, zap.NewNop())
	require.NoError(t, err)

	r, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, dir, r.Root)
	require.NotNil(t, r.Objects)
	require.NotNil(t, r.Index)
	require.NotNil(t, r.Commits)

	author, err := r.Author()
	require.NoError(t, err)
	assert.Empty(t, author)

	require.NoError(t, r.SetAuthor("alice"))
	author, err = r.Author()
	require.NoError(t, err)
	assert.Equal(t, "alice", author)
}
