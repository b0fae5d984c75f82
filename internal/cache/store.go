package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrWriteFailed means the translated subtitle could not be persisted.
var ErrWriteFailed = errors.New("cache write failed")

// FileSuffix is the fixed suffix appended to every cached translation.
const FileSuffix = ".srt"

const tempPrefix = ".tmp-"

// Entry describes one persisted translation.
type Entry struct {
	Key       string
	FileName  string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}

// Store is the key-value surface the orchestrator depends on. At most one
// entry exists per key; Put replaces any prior entry wholesale.
type Store interface {
	Get(key string) (Entry, bool, error)
	Put(key string, content []byte) (Entry, error)
}

// DiskStore keeps one file per translation in a single flat directory.
// The file naming is the index; there is no separate manifest.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the cache directory if needed and returns the store.
func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the cache directory path.
func (s *DiskStore) Dir() string {
	return s.dir
}

// FileName returns the deterministic storage name for a key.
func (s *DiskStore) FileName(key string) string {
	return SanitizeKey(key) + FileSuffix
}

// Get answers the existence question from file metadata alone; the content
// is never read here.
func (s *DiskStore) Get(key string) (Entry, bool, error) {
	name := s.FileName(key)
	path := filepath.Join(s.dir, name)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("stat cache entry: %w", err)
	}

	return Entry{
		Key:       key,
		FileName:  name,
		Path:      path,
		SizeBytes: info.Size(),
		CreatedAt: info.ModTime(),
	}, true, nil
}

// Put writes the content to a temporary file in the same directory and
// renames it into place, so a concurrent Get never observes a partial
// entry. An existing entry for the key is replaced.
func (s *DiskStore) Put(key string, content []byte) (Entry, error) {
	name := s.FileName(key)
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return Entry{}, fmt.Errorf("%w: create temp file: %v", ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("%w: write temp file: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("%w: close temp file: %v", ErrWriteFailed, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("%w: chmod temp file: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("%w: rename into place: %v", ErrWriteFailed, err)
	}

	return Entry{
		Key:       key,
		FileName:  name,
		Path:      path,
		SizeBytes: int64(len(content)),
		CreatedAt: time.Now(),
	}, nil
}

// Writable probes whether the cache directory accepts writes.
func (s *DiskStore) Writable() bool {
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"probe-*")
	if err != nil {
		return false
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return true
}

// Count returns how many translations are cached.
func (s *DiskStore) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), FileSuffix) {
			count++
		}
	}
	return count, nil
}

// SweepTemp removes temporary files older than the given age. These only
// exist when a Put was interrupted between write and rename.
func (s *DiskStore) SweepTemp(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// SanitizeKey transforms a cache key into a name safe for the filesystem.
// Series keys contain colons, which some filesystems reject.
func SanitizeKey(key string) string {
	var sb strings.Builder
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sb.WriteRune(c)
		case c == '.' || c == '_' || c == '-':
			sb.WriteRune(c)
		default:
			sb.WriteRune('-')
		}
	}
	return sb.String()
}
