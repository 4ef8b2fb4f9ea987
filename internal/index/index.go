// Package index maintains the staging index: one fixed-layout record
// per tracked path, updated in place at constant byte offsets.
package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	lgiterr "lgit/internal/errors"
	"lgit/internal/object"
)

// MtimeFormat is the fixed-width textual encoding of a file's mtime.
const MtimeFormat = "20060102150405"

// Byte offsets of the fields within a record. Every record is
// `<mtime 14> <working 40> <staged 40> <committed 40> <path>\n`, so
// the offsets hold at any record start.
const (
	mtimeLen        = 14
	offsetMtime     = 0
	offsetWorking   = 15
	offsetStaged    = 56
	offsetCommitted = 97
	offsetPath      = 138
)

// Sentinel fills the committed field of a never-committed record.
// Spaces are outside the hex alphabet, so it cannot collide with a
// real digest.
var Sentinel = strings.Repeat(" ", object.HashLen)

// Entry is one index record. CommittedHash is empty until the path
// has been committed; the sentinel exists only on disk.
type Entry struct {
	Path          string
	Mtime         string
	WorkingHash   string
	StagedHash    string
	CommittedHash string
}

// ManifestEntry is one `(stagedHash, path)` pair swept out of the
// index at commit time.
type ManifestEntry struct {
	Hash string
	Path string
}

// Index is the on-disk record store. root is the working-tree root
// that record paths are relative to; RefreshWorking hashes files
// under it.
type Index struct {
	path    string
	root    string
	offsets *lru.Cache[string, int64]
	logger  *zap.Logger
}

const offsetCacheSize = 512

func New(path, root string, logger *zap.Logger) (*Index, error) {
	offsets, err := lru.New[string, int64](offsetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating offset cache: %w", err)
	}

	return &Index{
		path:    path,
		root:    root,
		offsets: offsets,
		logger:  logger,
	}, nil
}

// record pairs a parsed entry with the byte offset of its line.
type record struct {
	offset int64
	entry  Entry
}

// Upsert records path with the given digest in both the working and
// staged fields. An existing record is patched in place; a new record
// is appended with the committed field unset.
func (ix *Index) Upsert(path, digest string, mtime time.Time) error {
	f, err := os.OpenFile(ix.path, os.O_RDWR, 0644)
	if err != nil {
		return lgiterr.IO("opening index", err)
	}
	defer f.Close()

	stamp := mtime.Format(MtimeFormat)

	rec, found, err := ix.find(f, path)
	if err != nil {
		return err
	}

	if found {
		if err := writeField(f, rec.offset+offsetMtime, stamp); err != nil {
			return err
		}
		if err := writeField(f, rec.offset+offsetWorking, digest); err != nil {
			return err
		}
		return writeField(f, rec.offset+offsetStaged, digest)
	}

	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return lgiterr.IO("seeking index", err)
	}
	line := formatRecord(Entry{
		Path:        path,
		Mtime:       stamp,
		WorkingHash: digest,
		StagedHash:  digest,
	})
	if _, err := f.WriteString(line); err != nil {
		return lgiterr.IO("appending index record", err)
	}
	ix.offsets.Add(path, end)
	ix.logger.Debug("tracked new path", zap.String("path", path), zap.String("hash", digest))
	return nil
}

// Remove deletes the record for path, reporting whether it existed.
// The file shrinks, so it is rewritten whole and swapped into place.
func (ix *Index) Remove(path string) (bool, error) {
	records, err := ix.load()
	if err != nil {
		return false, err
	}

	found := false
	var b strings.Builder
	for _, rec := range records {
		if rec.entry.Path == path {
			found = true
			continue
		}
		b.WriteString(formatRecord(rec.entry))
	}
	if !found {
		return false, nil
	}

	tmp := filepath.Join(filepath.Dir(ix.path), "index."+uuid.New().String()+".tmp")
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return false, lgiterr.IO("writing index", err)
	}
	if err := os.Rename(tmp, ix.path); err != nil {
		os.Remove(tmp)
		return false, lgiterr.IO("replacing index", err)
	}

	// Offsets after the removed record all shifted.
	ix.offsets.Purge()
	ix.logger.Debug("removed path from index", zap.String("path", path))
	return true, nil
}

// RefreshWorking re-hashes the file at path and patches the record's
// mtime and working fields in place. ok is false for untracked paths.
func (ix *Index) RefreshWorking(path string) (Entry, bool, error) {
	f, err := os.OpenFile(ix.path, os.O_RDWR, 0644)
	if err != nil {
		return Entry{}, false, lgiterr.IO("opening index", err)
	}
	defer f.Close()

	rec, found, err := ix.find(f, path)
	if err != nil {
		return Entry{}, false, err
	}
	if !found {
		return Entry{}, false, nil
	}

	abs := filepath.Join(ix.root, path)
	digest, err := object.DigestFile(abs)
	if err != nil {
		return Entry{}, false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Entry{}, false, lgiterr.IO(fmt.Sprintf("stating %s", path), err)
	}
	stamp := info.ModTime().Format(MtimeFormat)

	if err := writeField(f, rec.offset+offsetMtime, stamp); err != nil {
		return Entry{}, false, err
	}
	if err := writeField(f, rec.offset+offsetWorking, digest); err != nil {
		return Entry{}, false, err
	}

	rec.entry.Mtime = stamp
	rec.entry.WorkingHash = digest
	return rec.entry, true, nil
}

// CommitAdvance copies every record's staged field into its committed
// field in place and returns the swept `(stagedHash, path)` pairs in
// record order.
func (ix *Index) CommitAdvance() ([]ManifestEntry, error) {
	f, err := os.OpenFile(ix.path, os.O_RDWR, 0644)
	if err != nil {
		return nil, lgiterr.IO("opening index", err)
	}
	defer f.Close()

	records, err := readRecords(f)
	if err != nil {
		return nil, err
	}

	manifest := make([]ManifestEntry, 0, len(records))
	for _, rec := range records {
		if err := writeField(f, rec.offset+offsetCommitted, rec.entry.StagedHash); err != nil {
			return nil, err
		}
		manifest = append(manifest, ManifestEntry{
			Hash: rec.entry.StagedHash,
			Path: rec.entry.Path,
		})
	}
	return manifest, nil
}

// Entries returns every record in record order.
func (ix *Index) Entries() ([]Entry, error) {
	records, err := ix.load()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.entry)
	}
	return entries, nil
}

func (ix *Index) load() ([]record, error) {
	f, err := os.Open(ix.path)
	if err != nil {
		return nil, lgiterr.IO("opening index", err)
	}
	defer f.Close()
	return readRecords(f)
}

// find locates the record for path, trying the offset cache before
// falling back to a full scan (which re-primes the cache).
func (ix *Index) find(f *os.File, path string) (record, bool, error) {
	if off, ok := ix.offsets.Get(path); ok {
		rec, err := readRecordAt(f, off)
		if err == nil && rec.entry.Path == path {
			return rec, true, nil
		}
		ix.offsets.Remove(path)
	}

	records, err := readRecords(f)
	if err != nil {
		return record{}, false, err
	}
	for _, rec := range records {
		ix.offsets.Add(rec.entry.Path, rec.offset)
	}
	for _, rec := range records {
		if rec.entry.Path == path {
			return rec, true, nil
		}
	}
	return record{}, false, nil
}

func readRecords(f *os.File) ([]record, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, lgiterr.IO("seeking index", err)
	}

	var records []record
	var offset int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		entry, err := parseRecord(line)
		if err != nil {
			return nil, err
		}
		records = append(records, record{offset: offset, entry: entry})
		offset += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return nil, lgiterr.IO("reading index", err)
	}
	return records, nil
}

func readRecordAt(f *os.File, offset int64) (record, error) {
	r := bufio.NewReader(io.NewSectionReader(f, offset, 1<<20))
	line, err := r.ReadString('\n')
	if err != nil {
		return record{}, lgiterr.IO("reading index record", err)
	}
	entry, err := parseRecord(strings.TrimSuffix(line, "\n"))
	if err != nil {
		return record{}, err
	}
	return record{offset: offset, entry: entry}, nil
}

func parseRecord(line string) (Entry, error) {
	if len(line) <= offsetPath {
		return Entry{}, lgiterr.IO("parsing index record", fmt.Errorf("record too short: %d bytes", len(line)))
	}

	entry := Entry{
		Mtime:         line[offsetMtime : offsetMtime+mtimeLen],
		WorkingHash:   line[offsetWorking : offsetWorking+object.HashLen],
		StagedHash:    line[offsetStaged : offsetStaged+object.HashLen],
		CommittedHash: line[offsetCommitted : offsetCommitted+object.HashLen],
		Path:          line[offsetPath:],
	}
	if entry.CommittedHash == Sentinel {
		entry.CommittedHash = ""
	}
	return entry, nil
}

func formatRecord(e Entry) string {
	committed := e.CommittedHash
	if committed == "" {
		committed = Sentinel
	}
	return fmt.Sprintf("%s %s %s %s %s\n", e.Mtime, e.WorkingHash, e.StagedHash, committed, e.Path)
}

// writeField patches a single fixed-width field without touching the
// rest of the file.
func writeField(f *os.File, offset int64, value string) error {
	if _, err := f.WriteAt([]byte(value), offset); err != nil {
		return lgiterr.IO("updating index record", err)
	}
	return nil
}
