// Package worktree enumerates candidate trackable paths in the
// working directory.
package worktree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lgiterr "lgit/internal/errors"
	"lgit/internal/repo"
)

var skipDirs = map[string]bool{
	repo.Dir: true,
	".git":   true,
}

// ListFiles walks root and returns the relative path of every regular
// file outside the repository's own directories, in lexical walk
// order.
func ListFiles(root string) ([]string, error) {
	return listUnder(root, root)
}

// ResolveAddArgs expands add arguments into concrete file paths
// relative to root. Arguments are interpreted relative to base (the
// invoking directory, which may be below root). "." and "*" mean
// everything under base; a directory expands to its files
// recursively. A path that matches nothing is a NotFound error, like
// rm.
func ResolveAddArgs(root, base string, args []string) ([]string, error) {
	for _, arg := range args {
		if arg == "." || arg == "*" {
			return listUnder(root, base)
		}
	}

	var paths []string
	for _, arg := range args {
		abs := Resolve(base, arg)
		info, err := os.Stat(abs)
		if err != nil {
			return nil, lgiterr.NotFound(fmt.Sprintf("pathspec '%s' did not match any files", arg))
		}

		if !info.IsDir() {
			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return nil, lgiterr.IO("resolving path", err)
			}
			paths = append(paths, rel)
			continue
		}

		under, err := listUnder(root, abs)
		if err != nil {
			return nil, err
		}
		paths = append(paths, under...)
	}
	return paths, nil
}

// Resolve makes arg absolute, anchored at base unless it already is.
func Resolve(base, arg string) string {
	if filepath.IsAbs(arg) {
		return filepath.Clean(arg)
	}
	return filepath.Join(base, arg)
}

func listUnder(root, dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, lgiterr.IO("walking working tree", err)
	}
	return paths, nil
}
