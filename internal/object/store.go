package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	lgiterr "lgit/internal/errors"
)

// HashLen is the width of a hex digest as stored on disk.
const HashLen = 40

const cacheSize = 256

type Store interface {
	Put(content []byte) (string, error)
	Get(hash string) ([]byte, error)
	Exists(hash string) bool
}

// FileStore keeps blobs under root, bucketed by the first two digest
// characters. Blobs are write-once and never deleted.
type FileStore struct {
	root   string
	cache  *lru.Cache[string, []byte]
	logger *zap.Logger
}

func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating object store directory: %w", err)
	}

	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating content cache: %w", err)
	}

	return &FileStore{
		root:   root,
		cache:  cache,
		logger: logger,
	}, nil
}

// Put stores content under its digest and returns the digest. Storing
// content that already exists is a no-op.
func (s *FileStore) Put(content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}

	hash := Digest(content)

	path := s.blobPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", lgiterr.IO("creating object bucket", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, content, 0644); err != nil {
			return "", lgiterr.IO("writing object", err)
		}
		s.logger.Debug("stored object", zap.String("hash", hash), zap.Int("size", len(content)))
	}

	s.cache.Add(hash, content)
	return hash, nil
}

func (s *FileStore) Get(hash string) ([]byte, error) {
	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	content, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lgiterr.NotFound(fmt.Sprintf("object %s not found", hash))
		}
		return nil, lgiterr.IO("reading object", err)
	}

	s.cache.Add(hash, content)
	return content, nil
}

// Exists checks if a blob with the given digest is stored.
func (s *FileStore) Exists(hash string) bool {
	if len(hash) < 2 {
		return false
	}
	if _, ok := s.cache.Get(hash); ok {
		return true
	}
	_, err := os.Stat(s.blobPath(hash))
	return err == nil
}

func (s *FileStore) blobPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}

// Digest returns the hex SHA-1 of content.
func Digest(content []byte) string {
	h := sha1.Sum(content)
	return hex.EncodeToString(h[:])
}

// DigestFile returns the hex SHA-1 of the file's current bytes.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", lgiterr.IO(fmt.Sprintf("opening %s", path), err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", lgiterr.IO(fmt.Sprintf("hashing %s", path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
