// Package watch follows the working tree with fsnotify and re-hashes
// tracked files as they change.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"lgit/internal/index"
	"lgit/internal/repo"
	"lgit/internal/status"
)

const debounceDelay = 200 * time.Millisecond

// Event reports a tracked path's classification after a filesystem
// change, or "untracked" for paths outside the index.
type Event struct {
	Path  string
	State string
}

type Watcher struct {
	root    string
	index   *index.Index
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool

	done      chan struct{}
	pending   sync.WaitGroup
	closeOnce sync.Once

	Events chan Event
}

var ignoreDirs = map[string]bool{
	repo.Dir:       true,
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

func New(r *repo.Repo, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:    r.Root,
		index:   r.Index,
		watcher: fsw,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		done:    make(chan struct{}),
		Events:  make(chan Event, 64),
	}

	if err := w.watchTree(); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher. Pending debounce timers are cancelled (or
// drained) before the fsnotify watcher shuts down, so no refresh can
// fire into a closed Events channel.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		w.closed = true
		for path, timer := range w.timers {
			if timer.Stop() {
				w.pending.Done()
			}
			delete(w.timers, path)
		}
		w.mu.Unlock()

		// Timers that already fired bail out on done; wait for them.
		w.pending.Wait()
	})
	return w.watcher.Close()
}

// watchTree registers the root and every non-ignored subdirectory.
func (w *Watcher) watchTree() error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if ignoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				close(w.Events)
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				close(w.Events)
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		// New directories need their own watch.
		if err := w.watcher.Add(event.Name); err == nil {
			w.logger.Debug("watching new path", zap.String("path", event.Name))
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// Editors fire bursts of writes; coalesce them per path.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, ok := w.timers[event.Name]; ok {
		if timer.Stop() {
			w.pending.Done()
		}
	}
	w.pending.Add(1)
	w.timers[event.Name] = time.AfterFunc(debounceDelay, func() {
		defer w.pending.Done()
		w.mu.Lock()
		delete(w.timers, event.Name)
		w.mu.Unlock()
		w.refresh(event.Name)
	})
}

func (w *Watcher) refresh(abs string) {
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return
	}

	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return
	}

	entry, ok, err := w.index.RefreshWorking(rel)
	if err != nil {
		w.logger.Warn("refreshing changed file", zap.String("path", rel), zap.Error(err))
		return
	}

	state := "untracked"
	if ok {
		state = StateOf(entry)
	}
	w.logger.Debug("classified change", zap.String("path", rel), zap.String("state", state))
	select {
	case w.Events <- Event{Path: rel, State: state}:
	case <-w.done:
	}
}

func (w *Watcher) ignored(abs string) bool {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}

// StateOf names the classification of a tracked entry.
func StateOf(e index.Entry) string {
	staged, unstaged := status.Classify(e)
	switch {
	case staged && unstaged:
		return "staged+unstaged"
	case staged:
		return "staged"
	case unstaged:
		return "unstaged"
	default:
		return "clean"
	}
}
