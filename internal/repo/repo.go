// Package repo owns the .lgit layout and threads an explicit
// repository context through every operation.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"lgit/internal/commit"
	lgiterr "lgit/internal/errors"
	"lgit/internal/index"
	"lgit/internal/object"
)

// Dir is the repository marker directory at the working-tree root.
const Dir = ".lgit"

type Repo struct {
	Root    string
	Objects *object.FileStore
	Index   *index.Index
	Commits *commit.Store
	Logger  *zap.Logger
}

// Init creates the repository layout under dir. It is idempotent;
// already reports whether a repository was present. The author is
// seeded from $LOGNAME on first initialization.
func Init(dir string, logger *zap.Logger) (already bool, err error) {
	root := filepath.Join(dir, Dir)
	if _, err := os.Stat(root); err == nil {
		already = true
	}

	for _, d := range []string{root, filepath.Join(root, "objects"), filepath.Join(root, "commits"), filepath.Join(root, "snapshots")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return already, lgiterr.IO("creating repository directory", err)
		}
	}
	if err := touch(filepath.Join(root, "index")); err != nil {
		return already, err
	}

	configPath := filepath.Join(root, "config")
	if err := os.WriteFile(configPath, []byte(os.Getenv("LOGNAME")), 0644); err != nil {
		return already, lgiterr.IO("writing config", err)
	}

	logger.Info("initialized repository", zap.String("root", root), zap.Bool("already", already))
	return already, nil
}

// Find walks from startDir toward the filesystem root looking for the
// marker directory.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, Dir)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("not an lgit repository (no .lgit directory found)")
}

// Open locates the repository containing startDir and wires its
// stores.
func Open(startDir string, logger *zap.Logger) (*Repo, error) {
	root, err := Find(startDir)
	if err != nil {
		return nil, err
	}

	objects, err := object.NewFileStore(filepath.Join(root, Dir, "objects"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	ix, err := index.New(filepath.Join(root, Dir, "index"), root, logger)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	commits := commit.NewStore(
		filepath.Join(root, Dir, "commits"),
		filepath.Join(root, Dir, "snapshots"),
		logger,
	)

	return &Repo{
		Root:    root,
		Objects: objects,
		Index:   ix,
		Commits: commits,
		Logger:  logger,
	}, nil
}

// Author reads the configured author, empty when unset.
func (r *Repo) Author() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.Root, Dir, "config"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", lgiterr.IO("reading config", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (r *Repo) SetAuthor(name string) error {
	if err := os.WriteFile(filepath.Join(r.Root, Dir, "config"), []byte(name+"\n"), 0644); err != nil {
		return lgiterr.IO("writing config", err)
	}
	r.Logger.Info("configured author", zap.String("author", name))
	return nil
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE, 0644)
	if err != nil {
		return lgiterr.IO("creating repository file", err)
	}
	return f.Close()
}
