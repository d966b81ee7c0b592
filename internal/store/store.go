// Package store manages the scratch directory holding downloaded videos and
// their segments. Every video id owns a subdirectory <root>/<id>/ so jobs for
// different ids never touch each other's files.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"
)

const lockFileName = ".segcut.lock"

// VideoPattern matches every artifact the service writes.
const VideoPattern = "*.mp4"

var (
	ErrNotFound  = errors.New("file not found")
	ErrInvalidID = errors.New("invalid video id")
	ErrLocked    = errors.New("scratch directory is in use by another process")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]{0,127}$`)

// StoredFile is a file the fetcher or segmenter wrote into a job directory.
type StoredFile struct {
	Path      string
	Name      string
	JobID     string
	SizeBytes int64
}

// FileError pairs a path with the error that prevented its removal.
type FileError struct {
	Path string
	Err  error
}

type ClearResult struct {
	Removed []string
	Failed  []FileError
}

func (r ClearResult) Count() int { return len(r.Removed) }

type Store struct {
	root string
	lock *flock.Flock

	mu   sync.RWMutex
	jobs keyedMutex

	remove func(string) error
	statfs func(string) (uint64, error)
}

// Open prepares root and takes an advisory lock on it.
func Open(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	lock := flock.New(filepath.Join(abs, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return &Store{
		root:   abs,
		lock:   lock,
		remove: os.Remove,
		statfs: freeSpace,
	}, nil
}

func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *Store) Root() string { return s.root }

// ValidateID rejects ids that are not safe as a single path element.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// SanitizeID maps an arbitrary name onto the id alphabet.
func SanitizeID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= 100 {
			break
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "video"
	}
	return out
}

func VideoName(id string) string { return id + ".mp4" }

func SegmentName(id string, index int) string {
	return fmt.Sprintf("%s_segment_%02d.mp4", id, index)
}

// Acquire serializes work on one id. Work on different ids proceeds in parallel
// but never overlaps a sweep.
func (s *Store) Acquire(id string) (release func()) {
	s.mu.RLock()
	unlock := s.jobs.Lock(id)
	return func() {
		unlock()
		s.mu.RUnlock()
	}
}

// Exclusive blocks every Acquire until released.
func (s *Store) Exclusive() (release func()) {
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) jobDir(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.root, id), nil
}

// Path returns the location of name inside the job directory, creating the directory.
func (s *Store) Path(id, name string) (string, error) {
	dir, err := s.jobDir(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// Stat describes an existing file in the job directory.
func (s *Store) Stat(id, name string) (StoredFile, error) {
	dir, err := s.jobDir(id)
	if err != nil {
		return StoredFile{}, err
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StoredFile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return StoredFile{}, err
	}
	if !info.Mode().IsRegular() {
		return StoredFile{}, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, name)
	}
	return StoredFile{Path: path, Name: name, JobID: id, SizeBytes: info.Size()}, nil
}

// ClearJob removes the files of one job whose names match pattern.
func (s *Store) ClearJob(id, pattern string) (ClearResult, error) {
	dir, err := s.jobDir(id)
	if err != nil {
		return ClearResult{}, err
	}
	var result ClearResult
	s.clearDir(dir, pattern, &result)
	return result, nil
}

// Clear removes every file under root whose name matches pattern. Deletion
// failures are recorded per file and never abort the sweep.
func (s *Store) Clear(pattern string) ClearResult {
	var result ClearResult
	entries, err := os.ReadDir(s.root)
	if err != nil {
		result.Failed = append(result.Failed, FileError{Path: s.root, Err: err})
		return result
	}
	s.clearDir(s.root, pattern, &result)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		s.clearDir(dir, pattern, &result)
		// Empty job directories go too; a non-empty one just stays.
		_ = os.Remove(dir)
	}
	return result
}

func (s *Store) clearDir(dir, pattern string, result *ClearResult) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Failed = append(result.Failed, FileError{Path: dir, Err: err})
		}
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == lockFileName {
			continue
		}
		ok, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			result.Failed = append(result.Failed, FileError{Path: dir, Err: err})
			return
		}
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := s.remove(path); err != nil {
			result.Failed = append(result.Failed, FileError{Path: path, Err: err})
			continue
		}
		result.Removed = append(result.Removed, path)
	}
}

// Exists reports whether a retrievable file with this name exists.
func (s *Store) Exists(name string) bool {
	_, err := s.Resolve(name)
	return err == nil
}

func (s *Store) SizeBytes(name string) (int64, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return info.Size(), nil
}

func (s *Store) FreeSpaceBytes() (uint64, error) {
	return s.statfs(s.root)
}

// Resolve maps a retrieval file name to its absolute path. The name must be a
// bare file name owned by an existing job directory; anything that would escape
// the scratch root is rejected.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	for _, id := range s.owners(name) {
		path, err := confineRelPath(s.root, filepath.Join(id, name))
		if err != nil {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// owners lists job ids that could own name, longest first.
func (s *Store) owners(name string) []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		if name == VideoName(id) || strings.HasPrefix(name, id+"_segment_") {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return len(ids[i]) > len(ids[j]) })
	return ids
}

// Files lists the regular files of a job directory.
func (s *Store) Files(id string) ([]StoredFile, error) {
	dir, err := s.jobDir(id)
	if err != nil {
		return nil, err
	}
	var files []StoredFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, StoredFile{Path: path, Name: d.Name(), JobID: id, SizeBytes: info.Size()})
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return files, err
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
