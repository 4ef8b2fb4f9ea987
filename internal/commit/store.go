// Package commit persists immutable commit records and their
// snapshot manifests, one file each, named by millisecond epoch.
package commit

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	lgiterr "lgit/internal/errors"
	"lgit/internal/index"
)

type Commit struct {
	ID      string
	Author  string
	Time    string
	Message string
}

type Store struct {
	commitsDir   string
	snapshotsDir string
	logger       *zap.Logger
}

func NewStore(commitsDir, snapshotsDir string, logger *zap.Logger) *Store {
	return &Store{
		commitsDir:   commitsDir,
		snapshotsDir: snapshotsDir,
		logger:       logger,
	}
}

// Create writes the commit record and its snapshot manifest under the
// millisecond epoch of now. Two commits in the same millisecond share
// an identifier and the last write wins. An empty author is allowed:
// the commit still completes, with a warning.
func (s *Store) Create(author, message string, manifest []index.ManifestEntry, now time.Time) (string, error) {
	if author == "" {
		s.logger.Warn("committing with no author configured")
	}

	id := strconv.FormatInt(now.UnixMilli(), 10)

	record := fmt.Sprintf("%s\n%s\n\n%s\n\n", author, now.Format(index.MtimeFormat), message)
	if err := os.WriteFile(filepath.Join(s.commitsDir, id), []byte(record), 0644); err != nil {
		return "", lgiterr.IO("writing commit", err)
	}

	var b strings.Builder
	for _, m := range manifest {
		b.WriteString(m.Hash)
		b.WriteByte(' ')
		b.WriteString(m.Path)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(s.snapshotsDir, id), []byte(b.String()), 0644); err != nil {
		return "", lgiterr.IO("writing snapshot", err)
	}

	s.logger.Info("created commit",
		zap.String("id", id),
		zap.String("author", author),
		zap.Int("files", len(manifest)))
	return id, nil
}

// List returns all stored commit identifiers, unordered; callers sort
// for chronological traversal.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.commitsDir)
	if err != nil {
		return nil, lgiterr.IO("listing commits", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Name())
	}
	return ids, nil
}

func (s *Store) Get(id string) (*Commit, error) {
	data, err := os.ReadFile(filepath.Join(s.commitsDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lgiterr.NotFound(fmt.Sprintf("commit %s not found", id))
		}
		return nil, lgiterr.IO("reading commit", err)
	}

	lines := strings.Split(string(data), "\n")
	c := &Commit{ID: id}
	if len(lines) > 0 {
		c.Author = lines[0]
	}
	if len(lines) > 1 {
		c.Time = lines[1]
	}
	if len(lines) > 3 {
		c.Message = lines[3]
	}
	return c, nil
}

// Snapshot parses the manifest written alongside a commit.
func (s *Store) Snapshot(id string) ([]index.ManifestEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.snapshotsDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lgiterr.NotFound(fmt.Sprintf("snapshot %s not found", id))
		}
		return nil, lgiterr.IO("reading snapshot", err)
	}

	var manifest []index.ManifestEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		hash, path, ok := strings.Cut(line, " ")
		if !ok {
			return nil, lgiterr.IO("parsing snapshot", fmt.Errorf("malformed manifest line %q", line))
		}
		manifest = append(manifest, index.ManifestEntry{Hash: hash, Path: path})
	}
	return manifest, nil
}

// Date renders a commit identifier's creation instant for display.
func Date(id string) string {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return id
	}
	return time.UnixMilli(ms).Format("Mon Jan 2 15:04:05 2006")
}
