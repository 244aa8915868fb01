package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
)

// matcher decides whether a file event concerns the watched database.
type matcher struct {
	dir   string
	names map[string]bool
}

// newMatcher matches dbPath and the -wal and -journal files SQLite writes
// next to it. The -shm index is skipped since readers update it too.
func newMatcher(dbPath string) (*matcher, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dbPath, err)
	}
	dir := filepath.Dir(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	base := strings.ToLower(filepath.Base(abs))
	return &matcher{
		dir: dir,
		names: map[string]bool{
			base:              true,
			base + "-wal":     true,
			base + "-journal": true,
		},
	}, nil
}

// Matches reports whether path is the database or one of its write files.
// Names compare case-insensitively so the same rules hold on Windows.
func (m *matcher) Matches(path string) bool {
	if !m.names[strings.ToLower(filepath.Base(path))] {
		return false
	}

	dir := filepath.Dir(filepath.Clean(path))
	if dir == m.dir {
		return true
	}

	// Try resolving symlinks
	resolved, err := filepath.EvalSymlinks(dir)
	return err == nil && resolved == m.dir
}
