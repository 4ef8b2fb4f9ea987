// Package status reconciles the working tree, the staging index, and
// the last commit into per-path classifications.
package status

import (
	"go.uber.org/zap"

	"lgit/internal/index"
)

// Report buckets paths by classification. A path can be both staged
// and unstaged (staged once, edited again); untracked excludes the
// other two. Staged and Unstaged follow index record order, Untracked
// follows enumeration order.
type Report struct {
	Staged    []string
	Unstaged  []string
	Untracked []string
}

func (r *Report) Clean() bool {
	return len(r.Staged) == 0 && len(r.Unstaged) == 0 && len(r.Untracked) == 0
}

// Collect classifies every enumerated path. It persists refreshed
// mtime/workingHash fields into the index as it goes, so a nominally
// read-only status still writes.
func Collect(ix *index.Index, paths []string, logger *zap.Logger) (*Report, error) {
	report := &Report{}

	tracked := make(map[string]index.Entry, len(paths))
	for _, path := range paths {
		entry, ok, err := ix.RefreshWorking(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Untracked = append(report.Untracked, path)
			continue
		}
		tracked[path] = entry
	}

	entries, err := ix.Entries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		entry, ok := tracked[e.Path]
		if !ok {
			continue
		}
		if entry.CommittedHash != entry.StagedHash {
			report.Staged = append(report.Staged, entry.Path)
		}
		if entry.StagedHash != entry.WorkingHash {
			report.Unstaged = append(report.Unstaged, entry.Path)
		}
	}

	logger.Debug("collected status",
		zap.Int("staged", len(report.Staged)),
		zap.Int("unstaged", len(report.Unstaged)),
		zap.Int("untracked", len(report.Untracked)))
	return report, nil
}

// Classify reports the buckets a single tracked entry falls in.
func Classify(e index.Entry) (staged, unstaged bool) {
	return e.CommittedHash != e.StagedHash, e.StagedHash != e.WorkingHash
}
