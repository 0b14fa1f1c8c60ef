// Package vfs provides the in-memory virtual filesystem that holds generated
// artifacts for a single build. Every build owns exactly one Store; its
// contents live and die with the build.
package vfs

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// File is a single entry in the store. Version starts at 1 and is bumped on
// every overwrite of the same path.
type File struct {
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// snapshot captures path→content at a point in time. Rollback restores it.
type snapshot struct {
	files     map[string]string
	timestamp time.Time
}

// Store is the per-build virtual filesystem. All methods are safe for
// concurrent use by multiple task executions.
type Store struct {
	buildID   string
	mu        sync.RWMutex
	files     map[string]*File
	snapshots []snapshot
}

// NewStore creates an empty store for the given build.
func NewStore(buildID string) *Store {
	return &Store{
		buildID: buildID,
		files:   make(map[string]*File),
	}
}

// BuildID returns the owning build's identifier.
func (s *Store) BuildID() string {
	return s.buildID
}

// Write creates a file or overwrites an existing one in place, bumping its
// version. The returned File is a copy.
func (s *Store) Write(path, content string) File {
	path = NormalizePath(path)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.files[path]; ok {
		existing.Content = content
		existing.UpdatedAt = now
		existing.Version++
		return *existing
	}

	f := &File{
		Path:      path,
		Content:   content,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.files[path] = f
	return *f
}

// Read returns a file's content. The second return is false when the path is
// absent.
func (s *Store) Read(path string) (string, bool) {
	path = NormalizePath(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[path]
	if !ok {
		return "", false
	}
	return f.Content, true
}

// Stat returns a copy of the file's metadata, or false when absent.
func (s *Store) Stat(path string) (File, bool) {
	path = NormalizePath(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[path]
	if !ok {
		return File{}, false
	}
	return *f, true
}

// Delete removes a file. Returns false when the path was not present.
func (s *Store) Delete(path string) bool {
	path = NormalizePath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[path]; !ok {
		return false
	}
	delete(s.files, path)
	return true
}

// Exists reports whether a file is present.
func (s *Store) Exists(path string) bool {
	path = NormalizePath(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.files[path]
	return ok
}

// ListFiles returns the sorted paths under the given directory prefix.
// An empty or "/" prefix lists everything.
func (s *Store) ListFiles(prefix string) []string {
	prefix = NormalizePath(prefix)
	if prefix != "/" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		if prefix == "/" || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// GetAllFiles returns a path→content copy of the full store.
func (s *Store) GetAllFiles() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]string, len(s.files))
	for p, f := range s.files {
		all[p] = f.Content
	}
	return all
}

// Len returns the number of files in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Snapshot captures the current path→content state and returns its index for
// use with Rollback.
func (s *Store) Snapshot() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make(map[string]string, len(s.files))
	for p, f := range s.files {
		files[p] = f.Content
	}
	s.snapshots = append(s.snapshots, snapshot{files: files, timestamp: time.Now().UTC()})
	return len(s.snapshots) - 1
}

// Rollback replaces the current state with the given snapshot's content.
// Files created after the snapshot are discarded; restored files start over at
// version 1. Returns false for an unknown index.
func (s *Store) Rollback(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.snapshots) {
		return false
	}

	snap := s.snapshots[index]
	now := time.Now().UTC()
	restored := make(map[string]*File, len(snap.files))
	for p, content := range snap.files {
		restored[p] = &File{
			Path:      p,
			Content:   content,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	s.files = restored
	return true
}

// Clear removes every file. Snapshots are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]*File)
}

// NormalizePath converts a path to the canonical store form: forward slashes,
// a leading slash, and no trailing slash except for the root itself.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
