package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lgit/internal/index"
	"lgit/internal/repo"
)

func setupWatchedRepo(t *testing.T) *repo.Repo {
	t.Helper()

	dir := t.TempDir()
	_, err := repo.Init(dir, zap.NewNop())
	require.NoError(t, err)

	r, err := repo.Open(dir, zap.NewNop())
	require.NoError(t, err)
	return r
}

func trackFile(t *testing.T, r *repo.Repo, path, content string) {
	t.Helper()

	abs := filepath.Join(r.Root, path)
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))

	digest, err := r.Objects.Put([]byte(content))
	require.NoError(t, err)

	info, err := os.Stat(abs)
	require.NoError(t, err)
	require.NoError(t, r.Index.Upsert(path, digest, info.ModTime()))
}

func waitForEvent(t *testing.T, w *Watcher, path string) Event {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events:
			require.True(t, ok, "Events closed before an event for %s arrived", path)
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcherReportsClassification(t *testing.T) {
	r := setupWatchedRepo(t)
	trackFile(t, r, "a.txt", "hello")

	w, err := New(r, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	t.Run("TrackedEdit", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(r.Root, "a.txt"), []byte("hello edited"), 0644))

		ev := waitForEvent(t, w, "a.txt")
		// Edited but never committed: staged relative to the sentinel,
		// unstaged relative to the old staged digest.
		assert.Equal(t, "staged+unstaged", ev.State)
	})

	t.Run("UntrackedFile", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(r.Root, "new.txt"), []byte("x"), 0644))

		ev := waitForEvent(t, w, "new.txt")
		assert.Equal(t, "untracked", ev.State)
	})
}

func TestCloseDuringDebounce(t *testing.T) {
	r := setupWatchedRepo(t)
	trackFile(t, r, "a.txt", "hello")

	w, err := New(r, zap.NewNop())
	require.NoError(t, err)

	// Close mid-debounce: the pending timer must not fire into a
	// closed Events channel.
	require.NoError(t, os.WriteFile(filepath.Join(r.Root, "a.txt"), []byte("edited"), 0644))
	time.Sleep(debounceDelay / 4)
	require.NoError(t, w.Close())

	// Events drains and closes without a send on a closed channel.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-w.Events:
			if !ok {
				time.Sleep(2 * debounceDelay)
				return
			}
		case <-deadline:
			t.Fatal("Events not closed after Close")
		}
	}
}

func TestStateOf(t *testing.T) {
	h1 := "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	h2 := "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	h3 := "b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0"

	tests := []struct {
		name  string
		entry index.Entry
		want  string
	}{
		{"Clean", index.Entry{WorkingHash: h1, StagedHash: h1, CommittedHash: h1}, "clean"},
		{"Staged", index.Entry{WorkingHash: h2, StagedHash: h2, CommittedHash: h1}, "staged"},
		{"Unstaged", index.Entry{WorkingHash: h2, StagedHash: h1, CommittedHash: h1}, "unstaged"},
		{"Both", index.Entry{WorkingHash: h3, StagedHash: h2, CommittedHash: h1}, "staged+unstaged"},
		{"NeverCommitted", index.Entry{WorkingHash: h1, StagedHash: h1}, "staged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.entry))
		})
	}
}
